// Package config loads passvault settings from the environment.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/crypto/bcrypt"

	"github.com/Hussein-Mazeh/passvault/internal/vault"
	"github.com/Hussein-Mazeh/passvault/krypto"
)

// Prefix is the environment variable prefix, e.g. PASSVAULT_VAULT_FILE.
const Prefix = "PASSVAULT"

// MinBcryptCost keeps the master hash in the same cost range as the record KDF.
const MinBcryptCost = 10

// Config holds runtime settings. KDF and KDFIterations only affect vaults
// created after they are set; an existing vault keeps the kdf header it
// was created with.
type Config struct {
	VaultFile  string `envconfig:"VAULT_FILE" default:"credentials.json"`
	BackupFile string `envconfig:"BACKUP_FILE" default:"credentials-backups.db"`

	// BackupKeep is the number of snapshots retained; 0 disables backups.
	BackupKeep int `envconfig:"BACKUP_KEEP" default:"10"`

	KDF           string `envconfig:"KDF" default:"pbkdf2-sha256"`
	KDFIterations int    `envconfig:"KDF_ITERATIONS" default:"600000"`
	BcryptCost    int    `envconfig:"BCRYPT_COST" default:"12"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"warn"`
}

// Load reads an optional .env file, then the PASSVAULT_ environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that would weaken or break the vault.
func (c *Config) Validate() error {
	if c.VaultFile == "" {
		return fmt.Errorf("%s_VAULT_FILE must not be empty", Prefix)
	}
	if c.BackupKeep < 0 {
		return fmt.Errorf("%s_BACKUP_KEEP must not be negative", Prefix)
	}
	if c.BackupKeep > 0 && c.BackupFile == "" {
		return fmt.Errorf("%s_BACKUP_FILE must be set when backups are enabled", Prefix)
	}
	switch c.KDF {
	case vault.KDFPBKDF2:
		if c.KDFIterations < krypto.MinPBKDF2Iterations {
			return fmt.Errorf("%s_KDF_ITERATIONS must be at least %d", Prefix, krypto.MinPBKDF2Iterations)
		}
	case vault.KDFArgon2:
	default:
		return fmt.Errorf("%s_KDF %q not supported (want %s or %s)", Prefix, c.KDF, vault.KDFPBKDF2, vault.KDFArgon2)
	}
	if c.BcryptCost < MinBcryptCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("%s_BCRYPT_COST must be within [%d, %d]", Prefix, MinBcryptCost, bcrypt.MaxCost)
	}
	return nil
}

// KDFHeader is the kdf header written into newly created vaults.
func (c *Config) KDFHeader() *vault.KDFConfig {
	if c.KDF == vault.KDFArgon2 {
		p := krypto.DefaultArgon2Params()
		return &vault.KDFConfig{Name: vault.KDFArgon2, MemoryMB: p.MemoryMB, Time: p.Time, Parallelism: p.Parallelism}
	}
	return &vault.KDFConfig{Name: vault.KDFPBKDF2, Iterations: c.KDFIterations}
}
