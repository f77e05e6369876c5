package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testHasher(t *testing.T) Hasher {
	t.Helper()
	h, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func TestHasher_HashAndVerify(t *testing.T) {
	h := testHasher(t)

	hash, err := h.Hash("longenough1")
	require.NoError(t, err)
	assert.NotContains(t, hash, "longenough1")
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	assert.True(t, h.Verify("longenough1", hash))
	assert.False(t, h.Verify("longenough2", hash))
	assert.False(t, h.Verify("LONGENOUGH1", hash))
	assert.False(t, h.Verify("", hash))
	assert.False(t, h.Verify("longenough1", ""))
	assert.False(t, h.Verify("longenough1", "not-a-hash"))
}

func TestHasher_SaltedHashesDiffer(t *testing.T) {
	h := testHasher(t)

	h1, err := h.Hash("longenough1")
	require.NoError(t, err)
	h2, err := h.Hash("longenough1")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestNewHasher_RejectsCost(t *testing.T) {
	_, err := NewHasher(bcrypt.MinCost - 1)
	assert.Error(t, err)
	_, err = NewHasher(bcrypt.MaxCost + 1)
	assert.Error(t, err)
}

func TestValidateMasterPassword(t *testing.T) {
	tests := []struct {
		name    string
		pw      string
		confirm string
		wantErr error
	}{
		{"ok", "longenough1", "longenough1", nil},
		{"exactly eight", "12345678", "12345678", nil},
		{"too short", "short", "short", ErrPolicy},
		{"multibyte counts characters", "ééééééé", "ééééééé", ErrPolicy},
		{"too long for bcrypt", strings.Repeat("a", MaxMasterBytes+1), strings.Repeat("a", MaxMasterBytes+1), ErrPolicy},
		{"mismatch", "longenough1", "longenough2", ErrMismatch},
		{"case sensitive confirmation", "longenough1", "LONGENOUGH1", ErrMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMasterPassword(tt.pw, tt.confirm)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEstimateStrength(t *testing.T) {
	weak := EstimateStrength("password")
	strong := EstimateStrength("c0rrect-h0rse-battery-st4ple-Zq")

	assert.True(t, weak.Weak())
	assert.Greater(t, strong.Score, weak.Score)
	assert.NotEmpty(t, strong.CrackTime)
}

func TestPassphrase_Wipe(t *testing.T) {
	p := NewPassphrase("longenough1")
	buf := p.Bytes()
	require.False(t, p.Empty())

	p.Wipe()

	assert.True(t, p.Empty())
	assert.Nil(t, p.Bytes())
	assert.Equal(t, make([]byte, len(buf)), buf)

	var nilP *Passphrase
	assert.True(t, nilP.Empty())
	nilP.Wipe()
}
