// Package michelson builds the Michelson JSON values sent to a Tezos node for
// packing, reads the values it returns, and derives script expression keys
// for big-map lookups.
package michelson

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// ErrUnexpectedShape is returned when a node does not have the structure a reader expects.
var ErrUnexpectedShape = errors.New("unexpected michelson value shape")

// Node is one element of a Michelson expression in its JSON form. Exactly one
// of Prim, Str, Int or Bytes is set.
type Node struct {
	Prim   string   `json:"prim,omitempty"`
	Args   []Node   `json:"args,omitempty"`
	Annots []string `json:"annots,omitempty"`
	Str    *string  `json:"string,omitempty"`
	Int    *string  `json:"int,omitempty"`
	Bytes  *string  `json:"bytes,omitempty"`
}

// String returns a string literal.
func String(s string) Node {
	return Node{Str: &s}
}

// Int returns an integer literal.
func Int(n int64) Node {
	s := strconv.FormatInt(n, 10)
	return Node{Int: &s}
}

// Uint returns an integer literal.
func Uint(n uint64) Node {
	s := strconv.FormatUint(n, 10)
	return Node{Int: &s}
}

// Decimal returns an integer literal for d, which must not have a fractional part.
func Decimal(d decimal.Decimal) (Node, error) {
	if !d.IsInteger() {
		return Node{}, fmt.Errorf("michelson int must be integral, got %s", d)
	}
	s := d.String()
	return Node{Int: &s}, nil
}

// Prim returns a primitive application, used for both data (Pair, Some) and types (pair, address).
func Prim(name string, args ...Node) Node {
	return Node{Prim: name, Args: args}
}

// Pair folds values into a right comb: Pair a (Pair b c).
func Pair(values ...Node) Node {
	return comb("Pair", values)
}

// PairType folds types into a right comb: pair a (pair b c).
func PairType(types ...Node) Node {
	return comb("pair", types)
}

func comb(prim string, nodes []Node) Node {
	switch len(nodes) {
	case 0:
		return Prim(prim)
	case 1:
		return nodes[0]
	case 2:
		return Prim(prim, nodes[0], nodes[1])
	default:
		return Prim(prim, nodes[0], comb(prim, nodes[1:]))
	}
}

// Arg walks down Args by index, e.g. n.Arg(1, 0) is n.Args[1].Args[0].
func (n Node) Arg(path ...int) (Node, error) {
	cur := n
	for depth, i := range path {
		if i < 0 || i >= len(cur.Args) {
			return Node{}, fmt.Errorf("%w: no argument %d at depth %d", ErrUnexpectedShape, i, depth)
		}
		cur = cur.Args[i]
	}
	return cur, nil
}

// IntValue parses an int literal.
func (n Node) IntValue() (decimal.Decimal, error) {
	if n.Int == nil {
		return decimal.Zero, fmt.Errorf("%w: not an int literal", ErrUnexpectedShape)
	}
	d, err := decimal.NewFromString(*n.Int)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	return d, nil
}
