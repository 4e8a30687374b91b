package b58check

// Kind identifies what an encoded string carries. Each kind owns exactly one
// binary version prefix and a fixed payload length.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindSecretKey
	KindSeed
	KindSignature
	KindScriptExpr
	KindPublicKey
	KindPublicKeyHash
	KindSecp256k1SecretKey
	KindSecp256k1PublicKey
	KindSecp256k1PublicKeyHash
	KindSecp256k1Signature
	KindGenericSignature
	KindP256PublicKeyHash
	KindContractHash
)

type kindInfo struct {
	name       string // human readable prefix of the encoded string
	prefix     []byte
	payloadLen int
}

var registry = map[Kind]kindInfo{
	KindSecretKey:              {"edsk", []byte{0x2b, 0xf6, 0x4e, 0x07}, 64},
	KindSeed:                   {"edsk", []byte{0x0d, 0x0f, 0x3a, 0x07}, 32},
	KindSignature:              {"edsig", []byte{0x09, 0xf5, 0xcd, 0x86, 0x12}, 64},
	KindScriptExpr:             {"expr", []byte{0x0d, 0x2c, 0x40, 0x1b}, 32},
	KindPublicKey:              {"edpk", []byte{0x0d, 0x0f, 0x25, 0xd9}, 32},
	KindPublicKeyHash:          {"tz1", []byte{0x06, 0xa1, 0x9f}, 20},
	KindSecp256k1SecretKey:     {"spsk", []byte{0x11, 0xa2, 0xe0, 0xc9}, 32},
	KindSecp256k1PublicKey:     {"sppk", []byte{0x03, 0xfe, 0xe2, 0x56}, 33},
	KindSecp256k1PublicKeyHash: {"tz2", []byte{0x06, 0xa1, 0xa1}, 20},
	KindSecp256k1Signature:     {"spsig1", []byte{0x0d, 0x73, 0x65, 0x13, 0x3f}, 64},
	KindGenericSignature:       {"sig", []byte{0x04, 0x82, 0x2b}, 64},
	KindP256PublicKeyHash:      {"tz3", []byte{0x06, 0xa1, 0xa4}, 20},
	KindContractHash:           {"KT1", []byte{0x02, 0x5a, 0x79}, 20},
}

// Kinds lists every registered kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(registry))
	for k := KindSecretKey; k <= KindContractHash; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// PrefixFor returns the binary version prefix of kind, or nil for an unknown kind.
// The returned slice is a copy and may be modified by the caller.
func PrefixFor(kind Kind) []byte {
	info, ok := registry[kind]
	if !ok {
		return nil
	}
	p := make([]byte, len(info.prefix))
	copy(p, info.prefix)
	return p
}

// Prefix is shorthand for PrefixFor(k).
func (k Kind) Prefix() []byte { return PrefixFor(k) }

// PayloadLen returns the fixed payload length in bytes, or 0 for an unknown kind.
func (k Kind) PayloadLen() int { return registry[k].payloadLen }

// IsValid reports whether k is a registered kind.
func (k Kind) IsValid() bool {
	_, ok := registry[k]
	return ok
}

// String returns the human readable prefix every encoding of k starts with.
func (k Kind) String() string {
	if info, ok := registry[k]; ok {
		return info.name
	}
	return "invalid"
}

// IsSecretKey reports whether k carries secret key material.
func (k Kind) IsSecretKey() bool {
	switch k {
	case KindSecretKey, KindSeed, KindSecp256k1SecretKey:
		return true
	default:
		return false
	}
}

// IsAccount reports whether k is an address that can hold a ledger balance.
func (k Kind) IsAccount() bool {
	switch k {
	case KindPublicKeyHash, KindSecp256k1PublicKeyHash, KindP256PublicKeyHash, KindContractHash:
		return true
	default:
		return false
	}
}

// IsSignature reports whether k carries a signature.
func (k Kind) IsSignature() bool {
	switch k {
	case KindSignature, KindSecp256k1Signature, KindGenericSignature:
		return true
	default:
		return false
	}
}
