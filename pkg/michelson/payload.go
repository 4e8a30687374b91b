package michelson

import (
	"github.com/shopspring/decimal"
)

// Typed is a value together with the type it should be packed as.
type Typed struct {
	Data Node `json:"data"`
	Type Node `json:"type"`
}

// AddressKey is the big-map key for an account: the address as a string typed address.
func AddressKey(address string) Typed {
	return Typed{
		Data: String(address),
		Type: Prim("address"),
	}
}

// Transfer is a token transfer authorized off-chain by the sender's signature.
type Transfer struct {
	Amount   decimal.Decimal
	Nonce    uint64
	From     string
	To       string
	Contract string
}

// Payload returns the value signed for a transfer:
//
//	Pair amount (Pair nonce (Pair from (Pair to contract)))
//
// typed as pair int (pair int (pair address (pair address address))).
func (t Transfer) Payload() (Typed, error) {
	amount, err := Decimal(t.Amount)
	if err != nil {
		return Typed{}, err
	}

	return Typed{
		Data: Pair(
			amount,
			Uint(t.Nonce),
			String(t.From),
			String(t.To),
			String(t.Contract),
		),
		Type: PairType(
			Prim("int"),
			Prim("int"),
			Prim("address"),
			Prim("address"),
			Prim("address"),
		),
	}, nil
}
