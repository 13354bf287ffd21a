package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"quickart/crypto"
)

type Config struct {
	RPCAddress        string `toml:"RPCAddress"`
	DataDir           string `toml:"DataDir"`
	NetworkName       string `toml:"NetworkName"`
	OperatorAddress   string `toml:"OperatorAddress"`
	GenesisListingFee string `toml:"GenesisListingFee"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	for _, undecoded := range meta.Undecoded() {
		fmt.Printf("Warning: unknown configuration key %q in %s\n", undecoded.String(), path)
	}

	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "quickart-local"
	}
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./quickart-data"
	}
	if strings.TrimSpace(cfg.GenesisListingFee) == "" {
		cfg.GenesisListingFee = "0"
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if _, ok := new(big.Int).SetString(strings.TrimSpace(cfg.GenesisListingFee), 10); !ok {
		return fmt.Errorf("config: GenesisListingFee %q is not a base-10 integer", cfg.GenesisListingFee)
	}
	if addr := strings.TrimSpace(cfg.OperatorAddress); addr != "" {
		if _, err := crypto.DecodeAddress(addr); err != nil {
			return fmt.Errorf("config: OperatorAddress: %w", err)
		}
	}
	return nil
}

// ListingFee parses the genesis listing fee. Load has already validated the
// field, so a parse failure here means the config was mutated after loading.
func (c *Config) ListingFee() (*big.Int, error) {
	fee, ok := new(big.Int).SetString(strings.TrimSpace(c.GenesisListingFee), 10)
	if !ok {
		return nil, fmt.Errorf("config: GenesisListingFee %q is not a base-10 integer", c.GenesisListingFee)
	}
	return fee, nil
}

// Operator decodes the configured operator address.
func (c *Config) Operator() (crypto.Address, error) {
	addr := strings.TrimSpace(c.OperatorAddress)
	if addr == "" {
		return crypto.Address{}, fmt.Errorf("config: OperatorAddress not set")
	}
	return crypto.DecodeAddress(addr)
}

// createDefault creates and saves a default configuration file. The operator
// identity is freshly generated so a development node is usable immediately.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		RPCAddress:        ":8080",
		DataDir:           "./quickart-data",
		NetworkName:       "quickart-local",
		OperatorAddress:   key.PubKey().Address().String(),
		GenesisListingFee: "0",
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	fmt.Printf("Created default configuration at %s\n", path)
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
