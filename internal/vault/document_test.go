package vault

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hussein-Mazeh/passvault/krypto"
)

func TestDocument_JSONFieldNames(t *testing.T) {
	at := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	doc := Document{
		MasterHash: "$2a$12$hash",
		Credentials: []Credential{{
			ID:                "id-1",
			Website:           "gmail.com",
			Username:          "a@b.com",
			EncryptedPassword: "blob",
			CreatedAt:         NewTimestamp(at),
			UpdatedAt:         NewTimestamp(at),
		}},
	}

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "$2a$12$hash", raw["master_password_hash"])
	assert.NotContains(t, raw, "kdf")

	cred := raw["credentials"].([]any)[0].(map[string]any)
	for _, key := range []string{"id", "website", "username", "encrypted_password", "created_at", "updated_at"} {
		assert.Contains(t, cred, key)
	}
	assert.Equal(t, "2026-10-19T08:30:00Z", cred["created_at"])
}

func TestTimestamp_ReadsLegacyFormat(t *testing.T) {
	var c Credential
	require.NoError(t, json.Unmarshal([]byte(`{"created_at":"2024-01-02T03:04:05","updated_at":"2024-01-02T03:04:05Z"}`), &c))

	want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	assert.True(t, c.CreatedAt.Equal(want))
	assert.True(t, c.UpdatedAt.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))

	assert.Error(t, json.Unmarshal([]byte(`{"created_at":"yesterday"}`), &c))
	assert.Error(t, json.Unmarshal([]byte(`{"created_at":12}`), &c))
}

func TestDocument_Validate(t *testing.T) {
	cred := func(id, website, username, blob string) Credential {
		return Credential{ID: id, Website: website, Username: username, EncryptedPassword: blob}
	}
	good := Document{MasterHash: "h", Credentials: []Credential{cred("a", "gmail.com", "a@b.com", "x")}}
	require.NoError(t, good.Validate())

	tests := map[string]Document{
		"no master hash": {Credentials: nil},
		"missing id":     {MasterHash: "h", Credentials: []Credential{cred("", "w", "u", "x")}},
		"duplicate id":   {MasterHash: "h", Credentials: []Credential{cred("a", "w", "u", "x"), cred("a", "w", "u", "y")}},
		"no ciphertext":  {MasterHash: "h", Credentials: []Credential{cred("a", "w", "u", "")}},
		"blank website":  {MasterHash: "h", Credentials: []Credential{cred("a", "  ", "u", "x")}},
		"no username":    {MasterHash: "h", Credentials: []Credential{cred("a", "w", "", "x")}},
		"bad kdf":        {MasterHash: "h", KDF: &KDFConfig{Name: "md5"}},
		"weak pbkdf2":    {MasterHash: "h", KDF: &KDFConfig{Name: KDFPBKDF2, Iterations: 10}},
		"weak argon2":    {MasterHash: "h", KDF: &KDFConfig{Name: KDFArgon2, MemoryMB: 1, Time: 1, Parallelism: 1}},
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, doc.Validate())
		})
	}
}

func TestKDFConfig_Resolve(t *testing.T) {
	var legacy *KDFConfig
	kdf, err := legacy.KDF()
	require.NoError(t, err)
	assert.Equal(t, krypto.PBKDF2Params{Iterations: LegacyPBKDF2Iterations}, kdf)

	kdf, err = (&KDFConfig{Name: KDFArgon2, MemoryMB: 64, Time: 3, Parallelism: 1}).KDF()
	require.NoError(t, err)
	assert.Equal(t, krypto.Argon2Params{MemoryMB: 64, Time: 3, Parallelism: 1}, kdf)

	_, err = (&KDFConfig{Name: KDFArgon2}).KDF()
	assert.Error(t, err)

	for _, weak := range []KDFConfig{
		{Name: KDFArgon2, MemoryMB: 1, Time: 1, Parallelism: 1},
		{Name: KDFArgon2, MemoryMB: krypto.MinArgon2MemoryMB - 1, Time: 3, Parallelism: 1},
		{Name: KDFArgon2, MemoryMB: 64, Time: krypto.MinArgon2Time - 1, Parallelism: 1},
	} {
		_, err = weak.KDF()
		assert.ErrorIs(t, err, krypto.ErrInvalidInput, "%+v", weak)
	}

	kdf, err = (&KDFConfig{Name: KDFArgon2, MemoryMB: krypto.MinArgon2MemoryMB, Time: krypto.MinArgon2Time, Parallelism: 1}).KDF()
	require.NoError(t, err)
	assert.NotNil(t, kdf)
}

func TestDocument_CloneIsIndependent(t *testing.T) {
	doc := Document{MasterHash: "h", KDF: &KDFConfig{Name: KDFPBKDF2, Iterations: 100_000}, Credentials: []Credential{{ID: "a", Website: "w"}}}
	cp := doc.Clone()

	cp.Credentials[0].Website = "changed"
	cp.Credentials = append(cp.Credentials, Credential{ID: "b"})
	cp.KDF.Iterations = 1

	assert.Equal(t, "w", doc.Credentials[0].Website)
	assert.Len(t, doc.Credentials, 1)
	assert.Equal(t, 100_000, doc.KDF.Iterations)
	assert.Equal(t, 0, doc.IndexOf("a"))
	assert.Equal(t, -1, doc.IndexOf("zzz"))
}
