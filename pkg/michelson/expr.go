package michelson

import (
	"golang.org/x/crypto/blake2b"

	"github.com/eurotz/tzgate/pkg/b58check"
	"github.com/eurotz/tzgate/pkg/hexbuf"
)

// ScriptExprHash returns the "expr..." key addressing the big-map entry whose
// key packs to packed.
func ScriptExprHash(packed []byte) b58check.Encoded {
	digest := blake2b.Sum256(packed)
	return b58check.MustEncodeKind(b58check.KindScriptExpr, digest[:])
}

// ExprKey is ScriptExprHash over a hex-encoded packed value, as returned by
// the node's pack_data helper.
func ExprKey(packedHex string) (b58check.Encoded, error) {
	packed, err := hexbuf.Decode(packedHex)
	if err != nil {
		return b58check.Encoded{}, err
	}
	return ScriptExprHash(packed), nil
}
