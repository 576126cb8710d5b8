// Package identity provides the caller identities used for access
// control: secp256k1 key pairs and their base58 addresses.
//
// An address is base58(version || hash20 || checksum4) where hash20 is
// the first 20 bytes of a double SHA-256 of the compressed public key
// and checksum4 the first 4 bytes of a double SHA-256 of the preceding
// 21 bytes. Engine and treasury compare addresses only; keys are needed
// solely to sign fee-change authorizations.
package identity

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/base58"
)

// Address is a caller identity. The zero value means "no one" and is
// used for an unset player2 slot.
type Address string

// Zero is the sentinel unset address.
const Zero Address = ""

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool { return a == Zero }

// String implements fmt.Stringer.
func (a Address) String() string { return string(a) }

// addressVersion prefixes every encoded address.
const addressVersion byte = 0x35

// Key is a secp256k1 signing key with its derived address.
type Key struct {
	priv *btcec.PrivateKey
	addr Address
}

// GenerateKey creates a fresh random key.
func GenerateKey() (*Key, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return newKey(priv), nil
}

// KeyFromBytes reconstructs a key from a 32-byte private scalar.
func KeyFromBytes(b []byte) (*Key, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	priv, _ := btcec.PrivKeyFromBytes(b)
	return newKey(priv), nil
}

func newKey(priv *btcec.PrivateKey) *Key {
	return &Key{
		priv: priv,
		addr: PubKeyAddress(priv.PubKey()),
	}
}

// Address returns the key's derived address.
func (k *Key) Address() Address { return k.addr }

// Private exposes the underlying private key for signing.
func (k *Key) Private() *btcec.PrivateKey { return k.priv }

// PubKeyAddress derives the address of a public key.
func PubKeyAddress(pub *btcec.PublicKey) Address {
	return encodeAddress(hash20(pub.SerializeCompressed()))
}

func hash20(pub []byte) [20]byte {
	first := sha256.Sum256(pub)
	second := sha256.Sum256(first[:])
	var out [20]byte
	copy(out[:], second[:20])
	return out
}

func encodeAddress(h [20]byte) Address {
	payload := make([]byte, 0, 25)
	payload = append(payload, addressVersion)
	payload = append(payload, h[:]...)
	payload = append(payload, checksum(payload)...)
	return Address(base58.Encode(payload))
}

func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:4]
}

// CheckAddress validates the encoding and checksum of an address.
func CheckAddress(a Address) error {
	dec := base58.Decode(string(a))
	if len(dec) != 25 {
		return fmt.Errorf("address %q: want 25 decoded bytes, got %d", a, len(dec))
	}
	if dec[0] != addressVersion {
		return fmt.Errorf("address %q: unknown version 0x%02x", a, dec[0])
	}
	if !bytes.Equal(checksum(dec[:21]), dec[21:]) {
		return fmt.Errorf("address %q: checksum mismatch", a)
	}
	return nil
}
