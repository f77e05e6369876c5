package krypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastPBKDF2 = PBKDF2Params{Iterations: MinPBKDF2Iterations}

func TestPBKDF2_Deterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{7}, SaltLen)

	k1, err := fastPBKDF2.DeriveKey([]byte("longenough1"), salt)
	require.NoError(t, err)
	k2, err := fastPBKDF2.DeriveKey([]byte("longenough1"), salt)
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.Len(t, k1, KeyLen)
}

func TestPBKDF2_DifferentSaltsDifferentKeys(t *testing.T) {
	s1 := bytes.Repeat([]byte{1}, SaltLen)
	s2 := bytes.Repeat([]byte{2}, SaltLen)

	k1, err := fastPBKDF2.DeriveKey([]byte("longenough1"), s1)
	require.NoError(t, err)
	k2, err := fastPBKDF2.DeriveKey([]byte("longenough1"), s2)
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
}

func TestPBKDF2_RejectsMalformedInput(t *testing.T) {
	salt := make([]byte, SaltLen)

	tests := []struct {
		name   string
		params PBKDF2Params
		pass   []byte
		salt   []byte
	}{
		{"empty passphrase", fastPBKDF2, nil, salt},
		{"short salt", fastPBKDF2, []byte("pw"), salt[:12]},
		{"long salt", fastPBKDF2, []byte("pw"), make([]byte, 32)},
		{"too few iterations", PBKDF2Params{Iterations: 1000}, []byte("pw"), salt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.params.DeriveKey(tt.pass, tt.salt)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestArgon2_DeterministicAndValidated(t *testing.T) {
	p := Argon2Params{MemoryMB: MinArgon2MemoryMB, Time: MinArgon2Time, Parallelism: 1}
	salt := bytes.Repeat([]byte{3}, SaltLen)

	k1, err := p.DeriveKey([]byte("longenough1"), salt)
	require.NoError(t, err)
	k2, err := p.DeriveKey([]byte("longenough1"), salt)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	_, err = Argon2Params{Time: 1, Parallelism: 1}.DeriveKey([]byte("pw"), salt)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestArgon2_RejectsCostBelowFloor(t *testing.T) {
	salt := bytes.Repeat([]byte{3}, SaltLen)
	for _, p := range []Argon2Params{
		{MemoryMB: 1, Time: 1, Parallelism: 1},
		{MemoryMB: MinArgon2MemoryMB - 1, Time: MinArgon2Time, Parallelism: 1},
		{MemoryMB: MinArgon2MemoryMB, Time: MinArgon2Time - 1, Parallelism: 1},
		{MemoryMB: MinArgon2MemoryMB, Time: MinArgon2Time},
	} {
		_, err := p.DeriveKey([]byte("longenough1"), salt)
		assert.ErrorIs(t, err, ErrInvalidInput, "%+v", p)
	}
	require.NoError(t, DefaultArgon2Params().Check())
}

func TestNewRandomSalt(t *testing.T) {
	s1, err := NewRandomSalt()
	require.NoError(t, err)
	s2, err := NewRandomSalt()
	require.NoError(t, err)

	assert.Len(t, s1, SaltLen)
	assert.NotEqual(t, s1, s2)
}

func TestWipe(t *testing.T) {
	b := []byte("secret")
	Wipe(b)
	assert.Equal(t, make([]byte, 6), b)
}
