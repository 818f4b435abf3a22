package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"stakedrop/config"
	"stakedrop/core"
	"stakedrop/core/state"
	"stakedrop/observability/logging"
	"stakedrop/rpc"
	"stakedrop/storage"
)

func main() {
	configPath := flag.String("config", "./config.toml", "path to the TOML configuration file")
	initConfig := flag.Bool("init", false, "write a starter configuration file and exit")
	flag.Parse()

	if *initConfig {
		if err := config.WriteTemplate(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "init: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote starter configuration to %s\n", *configPath)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup("stakedropd", cfg.Env, logging.Options{LogFile: cfg.LogFile})

	db, err := openStorage(cfg)
	if err != nil {
		logger.Error("failed to open storage", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	nodeCfg, err := resolveNodeConfig(cfg)
	if err != nil {
		logger.Error("invalid engine configuration", "error", err)
		os.Exit(1)
	}

	var genesis *core.Genesis
	if cfg.GenesisFile != "" {
		genesis, err = core.LoadGenesis(cfg.GenesisFile)
		if err != nil {
			logger.Error("failed to load genesis", "path", cfg.GenesisFile, "error", err)
			os.Exit(1)
		}
	}

	node, err := core.NewNode(state.NewManager(db), genesis, nodeCfg, logger)
	if err != nil {
		logger.Error("failed to initialize node", "error", err)
		os.Exit(1)
	}

	server := rpc.NewServer(node)
	logger.Info("serving JSON-RPC", "address", cfg.RPCAddress, "network", cfg.NetworkName)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", "error", err)
		os.Exit(1)
	}
}

func openStorage(cfg *config.Config) (storage.Database, error) {
	switch cfg.StorageBackend {
	case "memory":
		return storage.NewMemDB(), nil
	case "leveldb":
		return storage.NewLevelDB(filepath.Join(cfg.DataDir, "stakedrop"))
	case "bolt":
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, err
		}
		return storage.NewBoltDB(filepath.Join(cfg.DataDir, "stakedrop.db"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func resolveNodeConfig(cfg *config.Config) (core.NodeConfig, error) {
	policy, err := cfg.ClaimPolicy()
	if err != nil {
		return core.NodeConfig{}, err
	}
	price, err := cfg.CollectiblePrice()
	if err != nil {
		return core.NodeConfig{}, err
	}
	nodeCfg := core.NodeConfig{
		ClaimPolicy:      policy,
		RewardsDuration:  cfg.Staking.RewardsDurationSeconds,
		LockDuration:     cfg.Staking.LockDurationSeconds,
		CollectiblePrice: price,
		SupplyCap:        cfg.Market.SupplyCap,
		BaseTokenURL:     cfg.Market.BaseTokenURL,
		TokenURLSuffix:   cfg.Market.TokenURLSuffix,
		PlatformFeeBps:   cfg.Market.PlatformFeeBps,
	}
	if cfg.Staking.CollectibleBeneficiary != "" {
		nodeCfg.CollectibleBeneficiary, err = config.DecodeAddr(cfg.Staking.CollectibleBeneficiary)
		if err != nil {
			return core.NodeConfig{}, err
		}
	}
	if cfg.Market.PlatformAddress != "" {
		nodeCfg.Platform, err = config.DecodeAddr(cfg.Market.PlatformAddress)
		if err != nil {
			return core.NodeConfig{}, err
		}
	}
	return nodeCfg, nil
}
