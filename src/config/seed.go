package config

import (
	"fmt"
	"os"

	"github.com/khabaroff/storefront-admin/src/models"
	"gopkg.in/yaml.v3"
)

// SeedAccount is one account in the ADMIN_SEED_FILE
type SeedAccount struct {
	Username     string                 `yaml:"username"`
	Password     string                 `yaml:"password"`
	DisplayName  string                 `yaml:"display_name"`
	ProfileImage string                 `yaml:"profile_image"`
	Role         string                 `yaml:"role"`
	Permissions  models.PermissionFlags `yaml:"permissions"`
}

// SeedFile lists accounts created at startup when missing
type SeedFile struct {
	Accounts []SeedAccount `yaml:"accounts"`
}

// LoadSeedFile reads and decodes a YAML seed file. Unknown keys are rejected.
func LoadSeedFile(path string) (*SeedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	var seed SeedFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	for i, acc := range seed.Accounts {
		if acc.Username == "" {
			return nil, fmt.Errorf("seed file %s: account %d has no username", path, i)
		}
		if _, err := acc.Permissions.Resolve(); err != nil {
			return nil, fmt.Errorf("seed file %s: account %q: %w", path, acc.Username, err)
		}
	}
	return &seed, nil
}
