package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	cache "github.com/krisalay/memo-cache"
	"github.com/krisalay/memo-cache/key"
	"github.com/krisalay/memo-cache/logging"
	"github.com/krisalay/memo-cache/metrics"
)

// ================= SLOW FUNCTION =================

type Quote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

var (
	upstreamMu    sync.Mutex
	upstreamCalls int
)

// fetchQuote stands in for a slow remote call.
func fetchQuote(ctx context.Context, args key.Args) (Quote, error) {
	upstreamMu.Lock()
	upstreamCalls++
	upstreamMu.Unlock()

	symbol := args.Positional[0].(string)
	fmt.Println("UPSTREAM → fetch:", symbol)

	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return Quote{}, ctx.Err()
	}

	price := float64(len(symbol)) * 10.5
	return Quote{Symbol: symbol, Price: price}, nil
}

// ================= MAIN =================

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "demo failed:", err)
		os.Exit(1)
	}
}

// report prints one call result, or its error.
func report(label string, q Quote, err error) {
	if err != nil {
		fmt.Println("ERROR  →", label, ":", err)
		return
	}
	fmt.Println("CACHE  →", label, "=", q.Price)
}

// run holds the demo so deferred cleanup happens on every return path.
func run(ctx context.Context) error {
	logger, err := logging.New(logging.Config{Level: "info", Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}
	defer logger.Sync()

	dir, err := os.MkdirTemp("", "memocache-demo-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	registry := prometheus.NewRegistry()
	m, err := metrics.NewPrometheus(registry, metrics.PrometheusConfig{Cache: "quotes"})
	if err != nil {
		return err
	}

	fmt.Println("\n==================== SYSTEM BOOT ====================")
	fmt.Println("PERSISTENCE     : FILE (write-through)")
	fmt.Println("EVICTION POLICY : LRU")
	fmt.Println("MAX AGE         : 2s")
	fmt.Println("MAX ENTRIES     : 3")
	fmt.Println("CACHE DIR       :", dir)

	opts := []cache.Option{
		cache.WithCacheDir(dir),
		cache.WithFilename("quotes.json"),
		cache.WithMaxAge(2 * time.Second),
		cache.WithMaxEntries(3),
		cache.WithMetrics(m),
		cache.WithLogger(logger),
	}

	quotes, err := cache.MemoizeContext(ctx, fetchQuote, opts...)
	if err != nil {
		return err
	}

	// ====================================================
	fmt.Println("\n==================== 1) CACHE MISS ====================")
	q, err := quotes.Call(ctx, key.Positional("ACME"))
	report("ACME", q, err)

	// ====================================================
	fmt.Println("\n==================== 2) CACHE HIT ====================")
	q, err = quotes.Call(ctx, key.Positional("ACME"))
	report("ACME", q, err)

	// ====================================================
	fmt.Println("\n==================== 3) MAX AGE ====================")
	time.Sleep(2100 * time.Millisecond)
	q, err = quotes.Call(ctx, key.Positional("ACME"))
	report("ACME after max age", q, err)

	// ====================================================
	fmt.Println("\n==================== 4) SINGLEFLIGHT ====================")

	wg := sync.WaitGroup{}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			q, err := quotes.Call(ctx, key.Positional("GLOBEX"))
			report(fmt.Sprintf("GOROUTINE-%d GLOBEX", id), q, err)
		}(i)
	}
	wg.Wait()

	// ====================================================
	fmt.Println("\n==================== 5) EVICTION ====================")

	for _, s := range []string{"INITECH", "UMBRELLA", "HOOLI"} {
		q, err := quotes.Call(ctx, key.Positional(s))
		report(s, q, err)
	}
	fmt.Println("CACHE  → size after 5 symbols =", quotes.Cache().Size())

	// ====================================================
	fmt.Println("\n==================== 6) INVALIDATE ====================")

	if err := quotes.Invalidate(ctx, key.Positional("HOOLI")); err != nil {
		return err
	}
	fmt.Println("CACHE  → INVALIDATE HOOLI, size =", quotes.Cache().Size())

	// ====================================================
	fmt.Println("\n==================== 7) RELOAD FROM DISK ====================")

	if err := quotes.Close(); err != nil {
		return err
	}
	reloaded, err := cache.MemoizeContext(ctx, fetchQuote, opts...)
	if err != nil {
		return err
	}
	fmt.Println("CACHE  → entries after reload =", reloaded.Cache().Size())
	q, err = reloaded.Call(ctx, key.Positional("UMBRELLA"))
	report("UMBRELLA", q, err)

	// ====================================================
	fmt.Println("\n==================== METRICS ====================")
	upstreamMu.Lock()
	fmt.Println("UPSTREAM CALLS :", upstreamCalls)
	upstreamMu.Unlock()

	families, err := registry.Gather()
	if err != nil {
		logger.Warn("gather metrics", zap.Error(err))
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "event" {
					fmt.Printf("%-9s : %.0f\n", lp.GetValue(), metric.GetCounter().GetValue())
				}
			}
		}
	}

	// ====================================================
	fmt.Println("\n==================== SHUTDOWN ====================")
	if err := reloaded.Close(); err != nil {
		return err
	}
	fmt.Println("SYSTEM → cache closed cleanly")
	return nil
}
