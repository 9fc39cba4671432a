// Command rollupd is the rollup daemon's entry point: it opens every
// on-disk store, wires the executor/generator/merger pipeline and the
// fetcher and RPC surface around them, and runs until signalled to stop.
//
// Usage:
//
//	rollupd [flags]
//
// Flags:
//
//	--datadir        Data directory root (default: ~/.rollupd)
//	--loglevel       Log level: debug, info, warn, error (default: info)
//	--rpc.addr       RPC listen address (default: 127.0.0.1:8645)
//	--fetcher        Enable the L1 fetcher (default: true)
//	--fetcher.sidecar  L1 side-car executable path
//	--fetcher.interval Poll interval in seconds, validated to be > 0 (default: 60);
//	                 the fetcher itself always polls every 60 seconds
//	--prover         Prover subprocess executable path (required)
//	--merger         Merger subprocess executable path (required)
//	--hasher         Optional external hasher subprocess executable path
//	--version        Print version and exit
//
// Grounded on pkg/cmd/eth2030/main.go's run(args)-returns-exit-code shape
// and its stdlib flag.FlagSet-based flag parsing, and on
// pkg/service/lifecycle.go (already adapted as internal/service) for
// ordered subsystem startup/shutdown.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/zkamm/rollup/internal/config"
	"github.com/zkamm/rollup/internal/domain"
	"github.com/zkamm/rollup/internal/eventsdb"
	"github.com/zkamm/rollup/internal/fetcher"
	"github.com/zkamm/rollup/internal/field"
	"github.com/zkamm/rollup/internal/pipeline"
	"github.com/zkamm/rollup/internal/proverproc"
	"github.com/zkamm/rollup/internal/queue"
	"github.com/zkamm/rollup/internal/rlog"
	"github.com/zkamm/rollup/internal/rpcserver"
	"github.com/zkamm/rollup/internal/service"
	"github.com/zkamm/rollup/internal/stores"
	"github.com/zkamm/rollup/internal/txdb"
)

var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning an exit code. Accepts CLI
// arguments (without the program name) so it can be tested in isolation.
func run(args []string) int {
	cfg, showVersion, exitCode, ok := parseFlags(args)
	if !ok {
		return exitCode
	}
	if showVersion {
		fmt.Printf("rollupd %s (commit %s)\n", version, commit)
		return 0
	}

	rlog.SetDefault(rlog.New(parseLevel(cfg.LogLevel)))
	log := rlog.Default().Module("main")

	if errs := config.NewValidator().Validate(cfg); len(errs) > 0 {
		for _, err := range errs {
			log.Error("invalid configuration", "error", err)
		}
		return 1
	}
	if err := cfg.InitDataDir(); err != nil {
		log.Error("failed to initialise data directory", "error", err)
		return 1
	}

	d, err := newDaemon(cfg)
	if err != nil {
		log.Error("failed to initialise daemon", "error", err)
		return 1
	}
	defer d.closeStores()

	fatal := make(chan error, 8)
	lm := d.register(fatal)

	if errs := lm.StartAll(); len(errs) > 0 {
		for _, err := range errs {
			log.Error("failed to start service", "error", err)
		}
		lm.StopAll()
		return 1
	}
	log.Info("rollupd started", "datadir", cfg.DataDir, "rpc_addr", cfg.RPC.ListenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received signal, shutting down", "signal", sig)
	case err := <-fatal:
		log.Error("fatal error, shutting down", "error", err)
	}

	if errs := lm.StopAll(); len(errs) > 0 {
		for _, err := range errs {
			log.Error("error during shutdown", "error", err)
		}
		return 1
	}
	log.Info("shutdown complete")
	return 0
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// parseFlags parses CLI arguments into a Config. ok is false when the
// caller should exit immediately with exitCode.
func parseFlags(args []string) (cfg *config.Config, showVersion bool, exitCode int, ok bool) {
	cfg = config.DefaultConfig()
	fs := flag.NewFlagSet("rollupd", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "datadir", cfg.DataDir, "data directory root")
	fs.StringVar(&cfg.LogLevel, "loglevel", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.RPC.ListenAddr, "rpc.addr", cfg.RPC.ListenAddr, "RPC listen address")
	fs.IntVar(&cfg.RPC.ChannelCapacity, "rpc.capacity", cfg.RPC.ChannelCapacity, "RPC channel capacity")
	fs.BoolVar(&cfg.Fetcher.Enabled, "fetcher", cfg.Fetcher.Enabled, "enable the L1 fetcher")
	fs.StringVar(&cfg.Fetcher.SidecarPath, "fetcher.sidecar", cfg.Fetcher.SidecarPath, "L1 side-car executable path")
	fs.Uint64Var(&cfg.Fetcher.PollIntervalSeconds, "fetcher.interval", cfg.Fetcher.PollIntervalSeconds, "fetcher poll interval in seconds")
	fs.StringVar(&cfg.Prover.Path, "prover", cfg.Prover.Path, "prover subprocess executable path")
	fs.StringVar(&cfg.Merger.Path, "merger", cfg.Merger.Path, "merger subprocess executable path")
	fs.StringVar(&cfg.Hasher.Path, "hasher", cfg.Hasher.Path, "optional external hasher subprocess executable path")
	showVersionFlag := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cfg, false, 2, false
	}
	if *showVersionFlag {
		return cfg, true, 0, true
	}
	return cfg, false, 0, true
}

// daemon owns every open store and subprocess handle; newDaemon wires
// them all against cfg, and the pipeline stages/fetcher/RPC server
// against the stores.
type daemon struct {
	cfg *config.Config

	db     *txdb.TransactionsDb
	events *eventsdb.EventsDb

	balances    *stores.BalancesStore
	burns       *stores.BurnsStore
	pools       *stores.PoolsStore
	liquidities *stores.LiquiditiesStore
	withdrawals *stores.WithdrawalsStore

	mempool   *queue.Mempool
	proofpool *queue.Proofpool

	proverProc *proverproc.Proc
	mergerProc *proverproc.Proc
	sidecar    *proverproc.Proc

	executor *pipeline.Executor
	generator *pipeline.Generator
	merger    *pipeline.Merger
	fetch     *fetcher.Fetcher
	rpc       *rpcserver.Server
}

func newDaemon(cfg *config.Config) (*daemon, error) {
	d := &daemon{cfg: cfg}
	hasher := field.DefaultHasher()

	var err error
	if d.db, err = txdb.Open(cfg.ResolvePath("txdb/file")); err != nil {
		return nil, fmt.Errorf("open txdb: %w", err)
	}
	if d.events, err = eventsdb.Open(cfg.ResolvePath("eventsdb")); err != nil {
		return nil, fmt.Errorf("open eventsdb: %w", err)
	}
	if d.balances, err = stores.OpenBalancesStore(cfg.ResolvePath("balances"), hasher); err != nil {
		return nil, fmt.Errorf("open balances: %w", err)
	}
	if d.burns, err = stores.OpenBurnsStore(cfg.ResolvePath("burns"), hasher); err != nil {
		return nil, fmt.Errorf("open burns: %w", err)
	}
	if d.pools, err = stores.OpenPoolsStore(cfg.ResolvePath("pools"), hasher); err != nil {
		return nil, fmt.Errorf("open pools: %w", err)
	}
	if d.liquidities, err = stores.OpenLiquiditiesStore(cfg.ResolvePath("liquidities"), hasher); err != nil {
		return nil, fmt.Errorf("open liquidities: %w", err)
	}
	if d.withdrawals, err = stores.OpenWithdrawalsStore(cfg.ResolvePath("withdrawals"), hasher); err != nil {
		return nil, fmt.Errorf("open withdrawals: %w", err)
	}
	if d.mempool, err = queue.OpenMempool(cfg.ResolvePath("mempool")); err != nil {
		return nil, fmt.Errorf("open mempool: %w", err)
	}
	if d.proofpool, err = queue.OpenProofpool(cfg.ResolvePath("proofpool")); err != nil {
		return nil, fmt.Errorf("open proofpool: %w", err)
	}

	if d.proverProc, err = proverproc.Start(cfg.Prover.Path, cfg.Prover.Args...); err != nil {
		return nil, fmt.Errorf("start prover: %w", err)
	}
	if d.mergerProc, err = proverproc.Start(cfg.Merger.Path, cfg.Merger.Args...); err != nil {
		return nil, fmt.Errorf("start merger: %w", err)
	}
	if cfg.Fetcher.Enabled {
		if d.sidecar, err = proverproc.Start(cfg.Fetcher.SidecarPath); err != nil {
			return nil, fmt.Errorf("start fetcher sidecar: %w", err)
		}
	}

	d.executor = pipeline.NewExecutor(
		d.mempool, d.proofpool, d.db,
		d.balances, d.burns, d.pools, d.liquidities,
		domain.DefaultVerifier(), hasher,
	)
	d.generator = pipeline.NewGenerator(
		d.proofpool, d.db,
		d.balances, d.burns, d.pools, d.liquidities,
		d.proverProc,
	)
	d.merger = pipeline.NewMerger(d.db, d.mergerProc)
	d.rpc = rpcserver.New(d.db, d.mempool, d.balances, d.pools, d.liquidities, d.burns, d.withdrawals)
	if cfg.Fetcher.Enabled {
		d.fetch = fetcher.New(d.sidecar, d.events, d.db, d.mempool, d.burns, d.withdrawals)
	}

	return d, nil
}

// register builds the lifecycle manager and registers every subsystem,
// lower priority starting first: stores are already open by the time this
// runs, so priority only orders the pipeline stages ahead of the RPC
// surface and fetcher that feed them.
func (d *daemon) register(fatal chan error) *service.LifecycleManager {
	lm := service.NewLifecycleManager(service.DefaultLifecycleConfig())

	lm.Register(pipeline.NewRunner("executor", d.executor.ExecuteOne, fatal), 0)
	lm.Register(pipeline.NewRunner("generator", d.generator.GenerateOne, fatal), 1)
	lm.Register(pipeline.NewRunner("merger", d.merger.StepOnce, fatal), 2)
	lm.Register(&rpcService{srv: d.rpc, addr: d.cfg.RPC.ListenAddr, fatal: fatal}, 3)
	if d.fetch != nil {
		lm.Register(d.fetch, 3)
	}
	d.rpc.SetHealthCheck(lm.HealthCheck)

	return lm
}

func (d *daemon) closeStores() {
	closers := []func() error{
		d.mempool.Close, d.proofpool.Close,
		d.balances.Close, d.burns.Close, d.pools.Close, d.liquidities.Close, d.withdrawals.Close,
		d.db.Close, d.events.Close,
		d.proverProc.Close, d.mergerProc.Close,
	}
	if d.sidecar != nil {
		closers = append(closers, d.sidecar.Close)
	}
	log := rlog.Default().Module("main")
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Warn("close failed", "error", err)
		}
	}
}

// rpcService adapts rpcserver.Server's blocking Start(addr) into the
// non-blocking service.Service shape the lifecycle manager expects,
// reporting a listen failure on fatal the way pipeline.Runner does.
type rpcService struct {
	srv   *rpcserver.Server
	addr  string
	fatal chan<- error
}

func (s *rpcService) Name() string { return s.srv.Name() }

func (s *rpcService) Start() error {
	go func() {
		if err := s.srv.Start(s.addr); err != nil {
			select {
			case s.fatal <- err:
			default:
			}
		}
	}()
	return nil
}

func (s *rpcService) Stop() error { return s.srv.Stop() }
