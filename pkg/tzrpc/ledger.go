package tzrpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/eurotz/tzgate/pkg/b58check"
	"github.com/eurotz/tzgate/pkg/michelson"
)

// Account is a ledger entry. Entries are stored as
//
//	Pair <owner data> (Pair balance nonce)
//
// in the token contract's big map, keyed by the owner address.
type Account struct {
	Address string           `json:"address"`
	Key     b58check.Encoded `json:"key"`
	Balance decimal.Decimal  `json:"balance"`
	Nonce   uint64           `json:"nonce"`
	Exists  bool             `json:"exists"`
}

// Ledger reads balances and nonces of a token contract.
type Ledger struct {
	client   *Client
	bigMapID int64
	contract string
}

func NewLedger(client *Client, bigMapID int64, contract string) *Ledger {
	return &Ledger{client: client, bigMapID: bigMapID, contract: contract}
}

// Contract returns the token contract address.
func (l *Ledger) Contract() string { return l.contract }

// Key returns the big-map key of address.
func (l *Ledger) Key(ctx context.Context, address string) (b58check.Encoded, error) {
	packed, err := l.client.PackData(ctx, michelson.AddressKey(address))
	if err != nil {
		return b58check.Encoded{}, fmt.Errorf("failed to pack address %s: %w", address, err)
	}
	key, err := michelson.ExprKey(packed)
	if err != nil {
		return b58check.Encoded{}, fmt.Errorf("node returned malformed packed data: %w", err)
	}
	return key, nil
}

// Account reads the ledger entry of address. An address with no entry has a
// zero balance and nonce.
func (l *Ledger) Account(ctx context.Context, address string) (Account, error) {
	key, err := l.Key(ctx, address)
	if err != nil {
		return Account{}, err
	}

	acc := Account{Address: address, Key: key, Balance: decimal.Zero}
	value, err := l.client.BigMapValue(ctx, l.bigMapID, key)
	if errors.Is(err, ErrNotFound) {
		return acc, nil
	}
	if err != nil {
		return Account{}, fmt.Errorf("failed to read ledger entry of %s: %w", address, err)
	}

	acc.Exists = true
	if acc.Balance, err = readInt(value, 1, 0); err != nil {
		return Account{}, fmt.Errorf("balance of %s: %w", address, err)
	}
	nonce, err := readInt(value, 1, 1)
	if err != nil {
		return Account{}, fmt.Errorf("nonce of %s: %w", address, err)
	}
	if !nonce.IsInteger() || !nonce.BigInt().IsUint64() {
		return Account{}, fmt.Errorf("nonce of %s: %w: %s out of range", address, michelson.ErrUnexpectedShape, nonce)
	}
	acc.Nonce = nonce.BigInt().Uint64()
	return acc, nil
}

func (l *Ledger) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	acc, err := l.Account(ctx, address)
	if err != nil {
		return decimal.Zero, err
	}
	return acc.Balance, nil
}

func (l *Ledger) Nonce(ctx context.Context, address string) (uint64, error) {
	acc, err := l.Account(ctx, address)
	if err != nil {
		return 0, err
	}
	return acc.Nonce, nil
}

// PackTransfer packs a transfer of amount from one account to another for
// signing. The contract is filled in when empty.
func (l *Ledger) PackTransfer(ctx context.Context, transfer michelson.Transfer) (string, error) {
	if transfer.Contract == "" {
		transfer.Contract = l.contract
	}
	payload, err := transfer.Payload()
	if err != nil {
		return "", err
	}
	packed, err := l.client.PackData(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("failed to pack transfer: %w", err)
	}
	return packed, nil
}

func readInt(value michelson.Node, path ...int) (decimal.Decimal, error) {
	node, err := value.Arg(path...)
	if err != nil {
		return decimal.Zero, err
	}
	return node.IntValue()
}
