// Veilchain Daemon - main entry point for the veilchain node.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/veilchain/core/internal/consensus"
	"github.com/veilchain/core/internal/mempool"
	"github.com/veilchain/core/internal/recursion"
	"github.com/veilchain/core/internal/storage"
	"github.com/veilchain/core/internal/supply"
	"github.com/veilchain/core/internal/zkp"
	"github.com/veilchain/core/pkg/types"
)

const (
	version = "0.1.0"
	banner  = `
  _    __      _ __     __          _
 | |  / /___  (_) /____/ /_  ____ _(_)___
 | | / / __ \/ / / ___/ __ \/ __ \`/ / __ \
 | |/ / /_/ / / / /__/ / / / /_/ / / / / /
 |___/\____/_/_/\___/_/ /_/\__,_/_/_/ /_/

  veilchain daemon v%s
`
)

// Config holds node configuration.
type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// Network
	ListenAddr string
	RPCAddr    string

	// Mining
	MinerEnabled bool
	MinerAddress string

	// Recursion
	RecursionK int

	// Logging
	LogLevel string
	LogFile  string

	// Data
	DataDir string
}

func main() {
	cfg := parseFlags()

	fmt.Printf(banner, version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.DBHost, "db-host", "localhost", "PostgreSQL host")
	flag.IntVar(&cfg.DBPort, "db-port", 5432, "PostgreSQL port")
	flag.StringVar(&cfg.DBUser, "db-user", "veilchain", "PostgreSQL user")
	flag.StringVar(&cfg.DBPassword, "db-password", "", "PostgreSQL password")
	flag.StringVar(&cfg.DBName, "db-name", "veilchain", "PostgreSQL database name")

	flag.StringVar(&cfg.ListenAddr, "listen", "/ip4/0.0.0.0/tcp/9000", "P2P listen address")
	flag.StringVar(&cfg.RPCAddr, "rpc", "127.0.0.1:9001", "RPC server address")

	flag.BoolVar(&cfg.MinerEnabled, "mine", false, "Enable mining")
	flag.StringVar(&cfg.MinerAddress, "miner-address", "", "Miner reward address")

	flag.IntVar(&cfg.RecursionK, "recursion-k", 4, "Number of inner proofs folded per aggregation call")

	flag.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFile, "log-file", "", "Log file path (empty for stdout)")

	flag.StringVar(&cfg.DataDir, "data-dir", "./data", "Data directory")

	flag.Parse()

	return cfg
}

func newLogger(cfg *Config) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logger.SetLevel(level)

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logger.SetOutput(f)
	}

	return logger, nil
}

// node bundles every subsystem the daemon wires together.
type node struct {
	store      *storage.PostgresStore
	tree       *zkp.CommitmentTree
	nullifiers *zkp.NullifierSet
	circuits   *zkp.CircuitManager
	pool       *zkp.ShieldedPool
	mempool    *mempool.Mempool
	supply     *supply.SupplyManager
	aggregator *recursion.Aggregator
	engine     *consensus.Engine
	log        *logrus.Logger
}

func run(ctx context.Context, cfg *Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	log := logger.WithField("component", "daemon")

	log.Info("initializing veilchain node")

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	log.Info("connecting to database")
	store, err := storage.NewPostgresStore(ctx, &storage.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  "disable",
		MaxConns: 20,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer store.Close()
	log.Info("database connected")

	n, err := initNode(ctx, store, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize node: %w", err)
	}

	log.WithFields(logrus.Fields{
		"tip_height": n.engine.Tip().Height,
		"mining":     cfg.MinerEnabled,
	}).Info("veilchain node started")

	// TODO: wire the P2P network and RPC server once this chain has a
	// transport layer; for now the node runs the consensus/mempool/zkp
	// pipeline against locally submitted blocks and transactions only.

	<-ctx.Done()

	log.Info("node stopped")
	return nil
}

// initNode constructs every in-process subsystem, restoring the commitment
// tree from its persisted snapshot when one exists and otherwise starting
// from an empty tree rooted at the genesis header.
func initNode(ctx context.Context, store *storage.PostgresStore, cfg *Config, logger *logrus.Logger) (*node, error) {
	tree, err := loadOrCreateTree(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("commitment tree: %w", err)
	}

	nullifiers := zkp.NewNullifierSet(store, nil)

	circuits := zkp.NewCircuitManager()
	if err := circuits.CompileTransactionCircuit(2, 2, zkp.TreeDepth); err != nil {
		return nil, fmt.Errorf("compile transaction circuit: %w", err)
	}

	shieldedPool := zkp.NewShieldedPool(tree, nullifiers, circuits)

	mp := mempool.NewMempool(nil)

	supplyMgr := supply.NewSupplyManager(store)

	inner, err := recursion.CompileTransactionInner(2, 2, zkp.TreeDepth)
	if err != nil {
		return nil, fmt.Errorf("compile recursion-friendly inner circuit: %w", err)
	}
	aggregator := recursion.NewAggregator(inner, cfg.RecursionK)
	if err := aggregator.Setup(); err != nil {
		return nil, fmt.Errorf("setup aggregation circuit: %w", err)
	}

	genesis, err := loadOrCreateGenesis(ctx, store, supplyMgr)
	if err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}

	engine := consensus.NewEngine(&consensus.Config{
		Tree:       tree,
		Nullifiers: nullifiers,
		Pool:       shieldedPool,
		Difficulty: consensus.NewDifficultyManager(nil),
		Supply:     supplyMgr,
		Mempool:    mp,
		Recursion:  aggregator,
		Genesis:    genesis,
		Logger:     logger,
	})

	return &node{
		store:      store,
		tree:       tree,
		nullifiers: nullifiers,
		circuits:   circuits,
		pool:       shieldedPool,
		mempool:    mp,
		supply:     supplyMgr,
		aggregator: aggregator,
		engine:     engine,
		log:        logger,
	}, nil
}

func loadOrCreateTree(ctx context.Context, store *storage.PostgresStore) (*zkp.CommitmentTree, error) {
	snap, err := store.LoadCommitmentTreeSnapshot(ctx)
	if err == storage.ErrNotFound {
		return zkp.NewCommitmentTree(zkp.TreeDepth, zkp.DefaultRootHistoryLimit)
	}
	if err != nil {
		return nil, err
	}
	return zkp.FromCompact(*snap)
}

// loadOrCreateGenesis returns the persisted genesis header, or derives and
// saves a fresh one seeded from an empty commitment tree and zero supply.
func loadOrCreateGenesis(ctx context.Context, store *storage.PostgresStore, supplyMgr *supply.SupplyManager) (types.BlockHeader, error) {
	if existing, err := store.GetBlocksByHeight(ctx, 0); err == nil && len(existing) > 0 {
		return *existing[0], nil
	}

	tree, err := zkp.NewCommitmentTree(zkp.TreeDepth, zkp.DefaultRootHistoryLimit)
	if err != nil {
		return types.BlockHeader{}, err
	}

	genesis := &types.BlockHeader{
		Version:        1,
		CommitmentRoot: types.Hash(tree.Root()),
		SupplyDigest:   supplyMgr.Digest(),
		Difficulty:     consensus.DefaultDifficultyConfig().InitialBits,
		Height:         0,
	}
	genesis.Hash = genesis.ComputeHash()

	if err := store.SaveBlock(ctx, types.NewBlock(genesis, nil)); err != nil {
		return types.BlockHeader{}, err
	}
	if err := store.UpdateMainChain(ctx, []types.Hash{genesis.Hash}, nil); err != nil {
		return types.BlockHeader{}, err
	}

	return *genesis, nil
}
