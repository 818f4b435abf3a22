package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// StakingConfig tunes the reward ledger and the claim-policy gate.
type StakingConfig struct {
	RewardsDurationSeconds uint64 `toml:"RewardsDurationSeconds"`
	ClaimPolicy            string `toml:"ClaimPolicy"`
	LockDurationSeconds    uint64 `toml:"LockDurationSeconds"`
	CollectiblePrice       string `toml:"CollectiblePrice"`
	CollectibleBeneficiary string `toml:"CollectibleBeneficiary"`
}

// MarketConfig tunes the collectible registry and marketplace settlement.
type MarketConfig struct {
	SupplyCap       uint64 `toml:"SupplyCap"`
	BaseTokenURL    string `toml:"BaseTokenURL"`
	TokenURLSuffix  string `toml:"TokenURLSuffix"`
	PlatformAddress string `toml:"PlatformAddress"`
	PlatformFeeBps  uint64 `toml:"PlatformFeeBps"`
}

type Config struct {
	RPCAddress     string `toml:"RPCAddress"`
	DataDir        string `toml:"DataDir"`
	StorageBackend string `toml:"StorageBackend"`
	GenesisFile    string `toml:"GenesisFile"`
	NetworkName    string `toml:"NetworkName"`
	Env            string `toml:"Env"`
	LogFile        string `toml:"LogFile"`

	Staking StakingConfig `toml:"Staking"`
	Market  MarketConfig  `toml:"Market"`
}

// Load reads and validates the configuration at the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file %s does not exist (use -init to write a template)", path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RPCAddress == "" {
		c.RPCAddress = "127.0.0.1:8651"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.StorageBackend == "" {
		c.StorageBackend = "leveldb"
	}
	if c.NetworkName == "" {
		c.NetworkName = "stakedrop-local"
	}
	if c.Staking.RewardsDurationSeconds == 0 {
		c.Staking.RewardsDurationSeconds = 30 * 24 * 60 * 60
	}
	if c.Staking.ClaimPolicy == "" {
		c.Staking.ClaimPolicy = "anytime"
	}
	if c.Market.TokenURLSuffix == "" {
		c.Market.TokenURLSuffix = ".json"
	}
}

// WriteTemplate writes a commented starter configuration to the path.
func WriteTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite existing config %s", path)
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const template = `RPCAddress = "127.0.0.1:8651"
DataDir = "./data"
# memory | leveldb | bolt
StorageBackend = "leveldb"
GenesisFile = "./genesis.yaml"
NetworkName = "stakedrop-local"
Env = "dev"
# LogFile = "/var/log/stakedrop/stakedropd.log"

[Staking]
RewardsDurationSeconds = 2592000
# anytime | afterLock
ClaimPolicy = "anytime"
LockDurationSeconds = 0
CollectiblePrice = "1000000000000000000"
CollectibleBeneficiary = ""

[Market]
SupplyCap = 10000
BaseTokenURL = "https://gateway.example.org/collection/"
TokenURLSuffix = ".json"
PlatformAddress = ""
PlatformFeeBps = 500
`
