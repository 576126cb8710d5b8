// Package feeauth implements the authorized fee-rate machine.
//
// The administrator signs a detached message binding (administrator,
// new fee, nonce) under a versioned domain tag. Any relayer can submit
// the signature; authorization comes from signature recovery, not from
// the transport caller. The per-signer nonce advances atomically with
// the rate change, so a captured signature can never be replayed.
package feeauth

import (
	"log/slog"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/veles/noughts/internal/canon"
	"github.com/veles/noughts/internal/fault"
	"github.com/veles/noughts/internal/identity"
)

// Domain tags the signed fee-change payload. The version suffix
// changes whenever the payload layout does.
const Domain = "noughts/feechange/v1"

// MaxFeeBps caps the fee rate at 100%.
const MaxFeeBps = 10000

// Authorizer holds the mutable fee rate and the anti-replay nonces.
// Safe for concurrent use.
type Authorizer struct {
	mu     sync.Mutex
	admin  identity.Address
	feeBps uint64
	nonces map[identity.Address]uint64
	logger *slog.Logger
}

// New creates an authorizer administered by admin with the given
// initial rate in basis points.
func New(admin identity.Address, feeBps uint64) *Authorizer {
	return &Authorizer{
		admin:  admin,
		feeBps: feeBps,
		nonces: make(map[identity.Address]uint64),
		logger: slog.Default(),
	}
}

// FeeBps returns the current fee rate in basis points.
func (a *Authorizer) FeeBps() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.feeBps
}

// Nonce returns the next expected nonce for a signer. Signers embed
// this value in the message they sign.
func (a *Authorizer) Nonce(signer identity.Address) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nonces[signer]
}

// ChangeDigest computes the digest a signer must sign to change the
// fee to newFeeBps at the given nonce. Exported so administrators and
// relayers can produce signatures offline.
func ChangeDigest(admin identity.Address, newFeeBps, nonce uint64) ([32]byte, error) {
	return canon.Digest(Domain, canon.Obj{
		"admin":   canon.Str(admin),
		"fee_bps": canon.Int(newFeeBps),
		"nonce":   canon.Int(nonce),
	})
}

// SignChange signs a fee change with the given key. Helper for
// administrators and tests; the 65-byte compact signature is
// relay-safe.
func SignChange(key *identity.Key, newFeeBps, nonce uint64) ([]byte, error) {
	digest, err := ChangeDigest(key.Address(), newFeeBps, nonce)
	if err != nil {
		return nil, err
	}
	return ecdsa.SignCompact(key.Private(), digest[:], true), nil
}

// ChangeFee verifies sig over (signer, newFeeBps, nonce) and, on
// success, atomically advances the signer's nonce and installs the new
// rate.
//
// signer names the claimed administrator; the digest is recomputed
// locally against the stored nonce, so neither the fee nor the nonce
// in the message can be substituted by the relayer.
func (a *Authorizer) ChangeFee(signer identity.Address, newFeeBps uint64, sig []byte) error {
	if newFeeBps > MaxFeeBps {
		return fault.New(fault.InvalidParameter, "fee %d exceeds %d bps", newFeeBps, MaxFeeBps)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	digest, err := ChangeDigest(signer, newFeeBps, a.nonces[signer])
	if err != nil {
		return fault.New(fault.InvalidParameter, "fee change digest: %v", err)
	}

	recovered, err := recoverSigner(sig, digest)
	if err != nil {
		return fault.New(fault.Unauthorized, "signature recovery failed: %v", err)
	}
	if recovered != signer || signer != a.admin {
		return fault.New(fault.Unauthorized, "signer %s is not the administrator", recovered)
	}

	a.nonces[signer]++
	old := a.feeBps
	a.feeBps = newFeeBps

	a.logger.Info("fee rate changed",
		"admin", signer.String(),
		"old_bps", old,
		"new_bps", newFeeBps,
		"nonce", a.nonces[signer],
	)
	return nil
}

func recoverSigner(sig []byte, digest [32]byte) (identity.Address, error) {
	pub, _, err := ecdsa.RecoverCompact(sig, digest[:])
	if err != nil {
		return identity.Zero, err
	}
	return pubAddress(pub), nil
}

func pubAddress(pub *btcec.PublicKey) identity.Address {
	return identity.PubKeyAddress(pub)
}
