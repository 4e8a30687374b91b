// Package sign signs and verifies Tezos operation payloads.
//
// The primary interfaces are:
//
//   - Signer: signs 32 byte digests without exposing key material
//   - PublicKey: verifies signatures and derives the account address
//   - Address: an implicit account (tz1 for Ed25519, tz2 for secp256k1)
//
// Payloads are never signed directly. They are hashed with BLAKE2b-256 (see
// Digest) and the digest is signed. The resulting 64 byte signature is encoded
// with the prefix of the key's scheme: edsig for Ed25519, spsig1 for secp256k1.
//
// Usage
//
//	// Sign a forged operation with an encoded secret key
//	sig, err := sign.SignDetached(forgedHex, "edsk...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Signature:", sig)
//
//	// Or keep the signer around
//	signer, err := sign.NewSignerFromEncoded("edsk...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Address:", signer.PublicKey().Address())
//	detached, err := sign.SignBytes(signer, message)
package sign
