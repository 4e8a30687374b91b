package sign

import (
	"bytes"
	"fmt"

	"github.com/eurotz/tzgate/pkg/b58check"
)

var _ Signer = (*MockSigner)(nil)

// MockSigner is a Signer for tests. Its signatures are the signed data with a
// "-signed-by-<id>" suffix, so they are predictable and cannot be encoded.
type MockSigner struct {
	publicKey PublicKey
}

// NewMockSigner creates a MockSigner whose key and address are id.
func NewMockSigner(id string) *MockSigner {
	return &MockSigner{publicKey: NewMockPublicKey(id)}
}

func (m *MockSigner) Sign(data []byte) (Signature, error) {
	sig := make([]byte, 0, len(data)+32)
	sig = append(sig, data...)
	sig = append(sig, m.suffix()...)
	return Signature(sig), nil
}

func (m *MockSigner) PublicKey() PublicKey {
	return m.publicKey
}

func (m *MockSigner) suffix() []byte {
	return []byte(fmt.Sprintf("-signed-by-%s", m.publicKey.Address().String()))
}

var _ PublicKey = (*MockPublicKey)(nil)

// MockPublicKey stores an ID that is used as both the key data and address.
type MockPublicKey struct {
	id string
}

func NewMockPublicKey(id string) *MockPublicKey {
	return &MockPublicKey{id: id}
}

func (m *MockPublicKey) Type() Type { return TypeUnknown }

func (m *MockPublicKey) Address() Address {
	return NewMockAddress(m.id)
}

func (m *MockPublicKey) Bytes() []byte {
	return []byte(m.id)
}

func (m *MockPublicKey) Encoded() b58check.Encoded {
	return b58check.Encoded{Kind: b58check.KindInvalid, Value: m.id}
}

// Verify accepts exactly the signatures MockSigner produces for digest.
func (m *MockPublicKey) Verify(digest []byte, sig Signature) bool {
	expected := append(append([]byte{}, digest...), []byte("-signed-by-"+m.id)...)
	return bytes.Equal(expected, sig)
}

var _ Address = (*MockAddress)(nil)

// MockAddress uses a plain string ID as the address.
type MockAddress struct {
	id string
}

func NewMockAddress(id string) *MockAddress {
	return &MockAddress{id: id}
}

func (m *MockAddress) String() string {
	return m.id
}

func (m *MockAddress) Equals(other Address) bool {
	return m.id == other.String()
}
