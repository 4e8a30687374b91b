// Package b58check implements the versioned base58check encoding used for
// Tezos keys, signatures and hashes.
//
// An encoded string is base58(prefix || payload || checksum), where prefix is a
// short binary version tag, payload has a fixed length that depends on the
// tag, and checksum is the first four bytes of a double SHA-256 over
// prefix || payload. The prefix is chosen so that every string of a given kind
// starts with the same readable characters ("edsk", "edsig", "expr", ...).
//
// Two decoding styles are offered:
//
//   - Decode takes a raw prefix and strips that many leading bytes after
//     checking the checksum. It never compares the prefix, so decoding with
//     the wrong prefix returns a payload of the wrong size without error.
//   - DecodeKind, Parse and Encoded.Payload consult the kind registry and
//     reject strings whose embedded prefix or payload length does not match.
//
// Usage
//
//	key, err := b58check.EncodeKind(b58check.KindScriptExpr, digest)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(key) // expr...
//
//	e, err := b58check.Parse("edsk3sDP6GEtZDNCNa7cAKHnRUVoN5i9K3baFkienK9LDq2yQzfhnA")
//	if err != nil {
//	    return err
//	}
//	seed, err := e.Payload() // 32 bytes, e.Kind == b58check.KindSeed
package b58check
