package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"quickart/config"
	"quickart/core/state"
	"quickart/native/market"
	"quickart/native/registry"
	"quickart/observability"
	"quickart/observability/logging"
	"quickart/rpc"
	"quickart/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("QUICKART_ENV"))
	logger := logging.Setup("quickartd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	operator, err := cfg.Operator()
	if err != nil {
		logger.Error("invalid operator address", "error", err)
		os.Exit(1)
	}
	genesisFee, err := cfg.ListingFee()
	if err != nil {
		logger.Error("invalid genesis listing fee", "error", err)
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		logger.Error("failed to open database", "error", err, "dir", cfg.DataDir)
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	if err := manager.InitializeMarketCounters(genesisFee); err != nil {
		logger.Error("failed to seed ledger counters", "error", err)
		os.Exit(1)
	}

	emitter := observability.NewLogEmitter(logger)

	registryEngine := registry.NewEngine()
	registryEngine.SetState(manager)
	registryEngine.SetEmitter(emitter)

	var operatorAddr [20]byte
	copy(operatorAddr[:], operator.Bytes())

	marketEngine := market.NewEngine()
	marketEngine.SetState(manager)
	marketEngine.SetRegistry(registryEngine)
	marketEngine.SetOperator(operatorAddr)
	marketEngine.SetVault(vaultAddress(cfg.NetworkName))
	marketEngine.SetEmitter(emitter)

	logger.Info("marketplace ledger ready",
		"network", cfg.NetworkName,
		"operator", cfg.OperatorAddress,
		"fee", genesisFee.String(),
		"rpc", cfg.RPCAddress,
	)

	server := rpc.NewServer(marketEngine, registryEngine, manager)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("rpc server stopped", "error", err)
		os.Exit(1)
	}
}

// vaultAddress derives the marketplace custody address deterministically from
// the network name so every node of a network agrees on it and no key ever
// exists for it.
func vaultAddress(network string) [20]byte {
	digest := ethcrypto.Keccak256([]byte(fmt.Sprintf("quickart/market/vault/%s", network)))
	var addr [20]byte
	copy(addr[:], digest[12:])
	return addr
}
