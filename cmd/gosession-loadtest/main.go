package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"
)

const loadtestSecret = "loadtest-Zq8!mN2#vR5$tL9^wK3&xP7*yH4@bC6%"

func main() {
	var (
		installs    = flag.Int("installs", 10000, "number of distinct install ids")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (issue, decode, check)")
		backend     = flag.String("backend", goSession.RateLimitBackendMemory, "rate limit backend: memory or redis")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		perInstall  = flag.Int("per-install", 10, "per-install limit for the check phase")
	)
	flag.Parse()

	if *installs <= 0 || *concurrency <= 0 || *ops <= 0 || *perInstall <= 0 {
		fmt.Fprintln(os.Stderr, "installs, concurrency, ops, and per-install must be > 0")
		os.Exit(2)
	}

	var client redis.UniversalClient
	if *backend == goSession.RateLimitBackendRedis {
		c, cleanup, err := openRedis(*redisAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "redis: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		client = c
	}

	ctx := context.Background()

	// Issue and decode run with limits high enough to never reject.
	open, err := buildEngine(*backend, client, "lt-open", *ops*2, *ops*2)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build: %v\n", err)
		os.Exit(1)
	}
	defer open.Close()

	ids := make([]string, *installs)
	for i := range ids {
		ids[i] = fmt.Sprintf("install-%08d", i)
	}

	tokens := make([]string, *ops)
	issueStats := runPhase(*ops, *concurrency, func(i int, r *rand.Rand) (bool, error) {
		tctx := goSession.WithClientIP(ctx, randomIP(r))
		tok, _, err := open.IssueSession(tctx, ids[r.IntN(len(ids))])
		tokens[i] = tok
		return false, err
	})

	decodeStats := runPhase(*ops, *concurrency, func(_ int, r *rand.Rand) (bool, error) {
		tok := tokens[r.IntN(len(tokens))]
		if tok == "" {
			return false, errors.New("no token issued")
		}
		_, err := open.Decode(ctx, tok)
		return false, err
	})

	limited, err := buildEngine(*backend, client, "lt-check", *perInstall*4, *perInstall)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build: %v\n", err)
		os.Exit(1)
	}
	defer limited.Close()

	checkStats := runPhase(*ops, *concurrency, func(_ int, r *rand.Rand) (bool, error) {
		err := limited.Check(ctx, randomIP(r), ids[r.IntN(len(ids))])
		if errors.Is(err, goSession.ErrRateLimited) {
			return true, nil
		}
		return false, err
	})

	fmt.Println("---- results ----")
	printStats("issue", issueStats)
	printStats("decode", decodeStats)
	printStats("check", checkStats)
}

func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func buildEngine(backend string, client redis.UniversalClient, prefix string, perIP, perInstall int) (*goSession.Engine, error) {
	cfg := goSession.DefaultConfig()
	cfg.Environment = "test"
	cfg.Token.Secret = loadtestSecret
	cfg.RateLimit.Backend = backend
	cfg.RateLimit.RedisPrefix = prefix
	cfg.RateLimit.PerIP = perIP
	cfg.RateLimit.PerInstall = perInstall
	cfg.RateLimit.MaxTrackedKeys = 0
	cfg.Audit.Enabled = false

	b := goSession.New().WithConfig(cfg).WithMetricsEnabled(true)
	if client != nil {
		b = b.WithRedis(client)
	}
	return b.Build()
}

func randomIP(r *rand.Rand) string {
	return fmt.Sprintf("10.%d.%d.%d", r.IntN(4), r.IntN(256), r.IntN(256))
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	limited  int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

// runPhase runs fn ops times across concurrency workers. fn reports whether
// the operation was rate limited and any failure.
func runPhase(ops, concurrency int, fn func(i int, r *rand.Rand) (bool, error)) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    atomic.Int64
		failures  atomic.Int64
		limited   atomic.Int64
		latencies = make([]time.Duration, ops)
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		seed := uint64(time.Now().UnixNano()) + uint64(w)*7919
		wg.Go(func() {
			r := rand.New(rand.NewPCG(seed, uint64(w)))
			for {
				i := int(cursor.Add(1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				wasLimited, err := fn(i, r)
				latencies[i] = time.Since(t0)
				if err != nil {
					failures.Add(1)
				}
				if wasLimited {
					limited.Add(1)
				}
			}
		})
	}
	wg.Wait()

	s := computeStats(time.Since(start), latencies)
	s.failures = failures.Load()
	s.limited = limited.Load()
	return s
}

func computeStats(total time.Duration, samples []time.Duration) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:   total,
		ops:     len(samples),
		p50:     percentile(samples, 50),
		p95:     percentile(samples, 95),
		p99:     percentile(samples, 99),
		opsPerS: float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d limited=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.limited,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
