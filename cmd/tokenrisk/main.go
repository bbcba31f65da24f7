package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AIAleph/token_risk/internal/activity"
	"github.com/AIAleph/token_risk/internal/analysis"
	"github.com/AIAleph/token_risk/internal/cache"
	"github.com/AIAleph/token_risk/internal/classify"
	cfgpkg "github.com/AIAleph/token_risk/internal/config"
	"github.com/AIAleph/token_risk/internal/erc20"
	"github.com/AIAleph/token_risk/internal/eth"
	"github.com/AIAleph/token_risk/internal/holders"
	"github.com/AIAleph/token_risk/internal/logging"
	"github.com/AIAleph/token_risk/internal/metrics"
	"github.com/AIAleph/token_risk/internal/scan"
	"github.com/AIAleph/token_risk/pkg/ch"
)

var (
	// version is set via -ldflags "-X main.version=..."
	version = "dev"
	// exit is aliased to os.Exit to allow overriding in tests.
	exit = os.Exit
	// stdout receives the report; tests swap it.
	stdout io.Writer = os.Stdout

	newProvider = func(endpoint string, rate int, retries int, backoff time.Duration) (eth.Provider, error) {
		return eth.NewProvider(endpoint, rate, retries, backoff)
	}
)

var addressRe = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// options is the fully resolved run configuration.
type options struct {
	Token         string
	FromBlock     uint64
	FromSet       bool
	ToBlock       uint64
	Blocks        uint64
	WindowHours   float64
	ProviderURL   string
	ClickHouseDSN string
	RedisURL      string
	RateLimit     int
	Batch         int
	MinBatch      int
	Workers       int
	Timeout       time.Duration
	MetricsAddr   string

	cfg cfgpkg.Config
}

func printUsage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "\nUsage:\n  %s --token 0x... [flags]\n\n", os.Args[0])
	fmt.Fprintln(out, "Flags:")
	flag.PrintDefaults()
	fmt.Fprintln(out, "\nEnvironment variables (defaults):")
	fmt.Fprintln(out, "  ETH_PROVIDER_URL       RPC endpoint (required unless --dry-run)")
	fmt.Fprintln(out, "  RATE_LIMIT             RPC rate limit (req/s, default 0 = unlimited)")
	fmt.Fprintln(out, "  HTTP_RETRIES           HTTP retries on 5xx/429/network (default 2)")
	fmt.Fprintln(out, "  HTTP_BACKOFF_BASE      Backoff base for retries (default 100ms)")
	fmt.Fprintln(out, "  SCAN_TIMEOUT           Whole-run timeout (default 10m)")
	fmt.Fprintln(out, "  SCAN_BATCH_BLOCKS      Blocks per eth_getLogs batch (default 1000)")
	fmt.Fprintln(out, "  SCAN_MIN_BATCH_BLOCKS  Shrink floor before a range is abandoned (default 100)")
	fmt.Fprintln(out, "  BALANCE_WORKERS        Concurrent balanceOf reads (default 1)")
	fmt.Fprintln(out, "  REDIS_URL              Shared fact/result cache (default in-process)")
	fmt.Fprintln(out, "  HOLDER_CACHE_TTL       Holder map freshness (default 1h)")
	fmt.Fprintln(out, "  CLICKHOUSE_DSN         Report sink (or CLICKHOUSE_URL/DB/USER/PASS)")
	fmt.Fprintln(out, "  LOG_LEVEL, LOG_FORMAT  Logging (info, json)")
	fmt.Fprintln(out, "  METRICS_ADDR           Serve Prometheus metrics on this address")
	fmt.Fprintln(out, "\nExamples:")
	fmt.Fprintln(out, "  Score the last 10000 blocks of a token:")
	fmt.Fprintln(out, "    tokenrisk --token 0xabc... --provider $ETH_PROVIDER_URL")
	fmt.Fprintln(out, "  Fixed range, activity normalised over 24 hours:")
	fmt.Fprintln(out, "    tokenrisk --token 0xabc... --from-block 19000000 --to-block 19007200 --window-hours 24")
}

func main() {
	defaults, err := cfgpkg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		exit(2)
		return
	}
	opts := options{cfg: defaults}
	var (
		logLevel    string
		dryRun      bool
		showVersion bool
	)

	flag.Usage = printUsage
	flag.StringVar(&opts.Token, "token", "", "ERC-20 token contract address (0x...) [required]")
	flag.Uint64Var(&opts.FromBlock, "from-block", 0, "Start block (default: to-block minus --blocks)")
	flag.Uint64Var(&opts.ToBlock, "to-block", 0, "End block (0 = head)")
	flag.Uint64Var(&opts.Blocks, "blocks", 10000, "Look-back window when --from-block is not set")
	flag.Float64Var(&opts.WindowHours, "window-hours", 1, "Hours the block range spans, used to normalise EOA activity")
	flag.StringVar(&opts.ProviderURL, "provider", defaults.ProviderURL, "Ethereum RPC provider URL (ETH_PROVIDER_URL)")
	flag.StringVar(&opts.ClickHouseDSN, "clickhouse", defaults.ClickHouseDSN, "ClickHouse DSN for the report sink (optional)")
	flag.StringVar(&opts.RedisURL, "redis", defaults.RedisURL, "Redis URL for the shared cache (REDIS_URL)")
	flag.IntVar(&opts.RateLimit, "rate-limit", defaults.RateLimit, "RPC rate limit (req/s, 0 = unlimited)")
	flag.IntVar(&opts.Batch, "batch", defaults.BatchBlocks, "Blocks per log query")
	flag.IntVar(&opts.MinBatch, "min-batch", defaults.MinBatchBlocks, "Shrink floor for rejected log queries")
	flag.IntVar(&opts.Workers, "workers", defaults.BalanceWorkers, "Concurrent balance reads")
	flag.DurationVar(&opts.Timeout, "timeout", defaults.ScanTimeout, "Overall timeout")
	flag.StringVar(&opts.MetricsAddr, "metrics-addr", defaults.MetricsAddr, "Serve /metrics on this address while running")
	flag.StringVar(&logLevel, "log-level", defaults.LogLevel, "debug|info|warn|error")
	flag.BoolVar(&dryRun, "dry-run", false, "Print plan and exit")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "from-block" {
			opts.FromSet = true
		}
	})

	if showVersion {
		fmt.Fprintln(stdout, version)
		return
	}
	if err := opts.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v; see --help\n", err)
		exit(2)
		return
	}
	logging.Configure(os.Stderr, logLevel, defaults.LogFormat)

	if dryRun {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(opts.plan())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()
	rep, err := run(ctx, opts)
	if rep != nil {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(rep)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis error: %v\n", err)
		exit(1)
	}
}

func (o options) validate() error {
	switch {
	case o.Token == "":
		return errors.New("missing --token (0x...)")
	case !addressRe.MatchString(o.Token):
		return errors.New("invalid --token; expected 0x-prefixed 40 hex chars")
	case o.FromSet && o.ToBlock > 0 && o.FromBlock > o.ToBlock:
		return errors.New("--from-block cannot be greater than --to-block")
	case o.WindowHours <= 0:
		return errors.New("--window-hours must be > 0")
	case o.Batch <= 0:
		return errors.New("--batch must be > 0")
	case o.MinBatch < 0:
		return errors.New("--min-batch must be >= 0")
	case o.Workers <= 0:
		return errors.New("--workers must be > 0")
	}
	return nil
}

func (o options) plan() map[string]any {
	from := any("to_block - blocks")
	if o.FromSet {
		from = o.FromBlock
	}
	return map[string]any{
		"token":          o.Token,
		"provider":       cfgpkg.RedactDSN(o.ProviderURL),
		"clickhouse_dsn": cfgpkg.RedactDSN(o.ClickHouseDSN),
		"redis_url":      cfgpkg.RedactDSN(o.RedisURL),
		"from_block":     from,
		"to_block":       o.ToBlock,
		"blocks":         o.Blocks,
		"window_hours":   o.WindowHours,
		"batch":          o.Batch,
		"min_batch":      o.MinBatch,
		"workers":        o.Workers,
		"rate_limit":     o.RateLimit,
		"timeout":        o.Timeout.String(),
	}
}

// run wires the components for one analysis.
func run(ctx context.Context, o options) (*analysis.Report, error) {
	log := logging.Component("cmd")
	if o.ProviderURL == "" {
		return nil, errors.New("no provider configured (ETH_PROVIDER_URL or --provider)")
	}
	prov, err := newProvider(o.ProviderURL, o.RateLimit, o.cfg.HTTPRetries, o.cfg.HTTPBackoffBase)
	if err != nil {
		return nil, fmt.Errorf("provider: %w", err)
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	if o.MetricsAddr != "" {
		srv := &http.Server{Addr: o.MetricsAddr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("metrics_server_failed", "addr", o.MetricsAddr, "error", err.Error())
			}
		}()
		defer func() { _ = srv.Close() }()
	}

	store, closeStore, err := openStore(ctx, o.RedisURL)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	from, to, err := resolveRange(ctx, prov, o)
	if err != nil {
		return nil, err
	}

	scanner := scan.New(prov, scan.WithBatchSize(uint64(o.Batch)), scan.WithMinBatch(uint64(o.MinBatch)))
	tokens := erc20.NewClient(prov)
	hb := holders.New(scanner, tokens,
		holders.WithWorkers(o.Workers),
		holders.WithResultCache(cache.NewResults(store, o.cfg.HolderCacheTTL)),
	)
	act := activity.New(scanner, classify.New(prov, cache.NewFacts(store)))

	var aopts []analysis.Option
	if o.ClickHouseDSN != "" {
		sink := analysis.NewClickHouseSink(ch.New(o.ClickHouseDSN))
		if err := sink.EnsureSchema(ctx); err != nil {
			log.Warn("clickhouse_unavailable", "dsn", cfgpkg.RedactDSN(o.ClickHouseDSN), "error", err.Error())
		} else {
			aopts = append(aopts, analysis.WithSink(sink))
		}
	}

	log.Info("analysis_start", "token", o.Token, "from", from, "to", to, "window_hours", o.WindowHours)
	return analysis.New(scanner, tokens, hb, act, aopts...).Run(ctx, analysis.Request{
		Token:       common.HexToAddress(o.Token),
		From:        from,
		To:          to,
		WindowHours: o.WindowHours,
	})
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// openStore returns Redis when configured, else an in-process store.
func openStore(ctx context.Context, redisURL string) (cache.Store, func(), error) {
	if redisURL == "" {
		return cache.NewMemoryStore(0), func() {}, nil
	}
	rs, err := cache.NewRedisStore(ctx, redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	return rs, func() { _ = rs.Close() }, nil
}

type headReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// resolveRange fills in the head block and the look-back start.
func resolveRange(ctx context.Context, p headReader, o options) (uint64, uint64, error) {
	to := o.ToBlock
	if to == 0 {
		head, err := p.BlockNumber(ctx)
		if err != nil {
			return 0, 0, fmt.Errorf("head block: %w", err)
		}
		to = head
	}
	if o.FromSet {
		if o.FromBlock > to {
			return 0, 0, fmt.Errorf("from(%d) > to(%d)", o.FromBlock, to)
		}
		return o.FromBlock, to, nil
	}
	if o.Blocks >= to {
		return 0, to, nil
	}
	return to - o.Blocks, to, nil
}
