package feeauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veles/noughts/internal/fault"
	"github.com/veles/noughts/internal/identity"
)

func newAdmin(t *testing.T) *identity.Key {
	t.Helper()
	k, err := identity.GenerateKey()
	require.NoError(t, err)
	return k
}

func TestChangeFee_SignedByAdmin(t *testing.T) {
	admin := newAdmin(t)
	a := New(admin.Address(), 100)

	sig, err := SignChange(admin, 250, a.Nonce(admin.Address()))
	require.NoError(t, err)

	require.NoError(t, a.ChangeFee(admin.Address(), 250, sig))
	assert.Equal(t, uint64(250), a.FeeBps())
	assert.Equal(t, uint64(1), a.Nonce(admin.Address()))
}

func TestChangeFee_ReplayRejected(t *testing.T) {
	admin := newAdmin(t)
	a := New(admin.Address(), 100)

	sig, err := SignChange(admin, 250, 0)
	require.NoError(t, err)
	require.NoError(t, a.ChangeFee(admin.Address(), 250, sig))

	// Same signature again: nonce has advanced, digest differs.
	err = a.ChangeFee(admin.Address(), 250, sig)
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.Unauthorized))
	assert.Equal(t, uint64(250), a.FeeBps())
}

func TestChangeFee_NonAdminSignerRejected(t *testing.T) {
	admin := newAdmin(t)
	mallory := newAdmin(t)
	a := New(admin.Address(), 100)

	sig, err := SignChange(mallory, 1, a.Nonce(mallory.Address()))
	require.NoError(t, err)

	err = a.ChangeFee(mallory.Address(), 1, sig)
	assert.True(t, fault.Is(err, fault.Unauthorized))
	assert.Equal(t, uint64(100), a.FeeBps())
}

func TestChangeFee_TamperedFeeRejected(t *testing.T) {
	admin := newAdmin(t)
	a := New(admin.Address(), 100)

	// Signed for 250, relayed claiming 9000.
	sig, err := SignChange(admin, 250, 0)
	require.NoError(t, err)

	err = a.ChangeFee(admin.Address(), 9000, sig)
	assert.True(t, fault.Is(err, fault.Unauthorized))
	assert.Equal(t, uint64(100), a.FeeBps())
	assert.Equal(t, uint64(0), a.Nonce(admin.Address()))
}

func TestChangeFee_CapsRate(t *testing.T) {
	admin := newAdmin(t)
	a := New(admin.Address(), 100)

	sig, err := SignChange(admin, MaxFeeBps+1, 0)
	require.NoError(t, err)

	err = a.ChangeFee(admin.Address(), MaxFeeBps+1, sig)
	assert.True(t, fault.Is(err, fault.InvalidParameter))
}

func TestChangeFee_GarbageSignature(t *testing.T) {
	admin := newAdmin(t)
	a := New(admin.Address(), 100)

	err := a.ChangeFee(admin.Address(), 250, []byte("not a signature"))
	assert.True(t, fault.Is(err, fault.Unauthorized))
}

func TestChangeDigest_BindsEveryField(t *testing.T) {
	admin := newAdmin(t)
	base, err := ChangeDigest(admin.Address(), 250, 0)
	require.NoError(t, err)

	otherFee, err := ChangeDigest(admin.Address(), 251, 0)
	require.NoError(t, err)
	otherNonce, err := ChangeDigest(admin.Address(), 250, 1)
	require.NoError(t, err)

	assert.NotEqual(t, base, otherFee)
	assert.NotEqual(t, base, otherNonce)
}
