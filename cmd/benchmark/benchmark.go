package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	cache "github.com/krisalay/memo-cache"
	"github.com/krisalay/memo-cache/key"
)

// ================= WORKLOAD =================

// square is cheap on purpose: the benchmark measures cache overhead, not the
// wrapped function.
func square(_ context.Context, args key.Args) (int, error) {
	n := args.Positional[0].(int)
	return n * n, nil
}

// ================= BENCHMARK =================

func main() {
	ctx := context.Background()

	var (
		distinct   = flag.Int("keys", 10000, "distinct argument values")
		maxEntries = flag.Int("max-entries", 5000, "cache capacity")
		goroutines = flag.Int("goroutines", 64, "concurrent callers")
		opsPerG    = flag.Int("ops", 20000, "calls per goroutine")
		persistDir = flag.String("dir", "", "persist to this directory (slow: every call flushes)")
		writeBack  = flag.Bool("write-back", false, "flush from a background worker")
	)
	flag.Parse()

	opts := []cache.Option{cache.WithMaxEntries(*maxEntries)}
	if *persistDir != "" {
		opts = append(opts, cache.WithCacheDir(*persistDir), cache.WithFilename("benchmark.json"))
	}
	if *writeBack {
		opts = append(opts, cache.WithWriteBack())
	}

	fmt.Println("\n================ MEMOIZE LOAD BENCHMARK =================")
	fmt.Println("CONFIG")
	fmt.Println("---------------------------------")
	fmt.Println("Distinct Keys :", *distinct)
	fmt.Println("Max Entries   :", *maxEntries)
	fmt.Println("Goroutines    :", *goroutines)
	fmt.Println("Ops/Goroutine :", *opsPerG)
	fmt.Println("Persist Dir   :", *persistDir)
	fmt.Println("Write Back    :", *writeBack)
	fmt.Println("---------------------------------")

	f, err := cache.MemoizeContext(ctx, square, opts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// ---------------- Warmup ----------------
	fmt.Println("Warming up cache...")
	for i := 0; i < *maxEntries && i < *distinct; i++ {
		if _, err := f.Call(ctx, key.Positional(i)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	// ---------------- Load Test ----------------
	fmt.Println("Running concurrency benchmark...")
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < *goroutines; i++ {
		id := i
		g.Go(func() error {
			for j := 0; j < *opsPerG; j++ {
				n := (id*7919 + j) % *distinct
				if _, err := f.Call(gctx, key.Positional(n)); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, "benchmark failed:", err)
		os.Exit(1)
	}

	duration := time.Since(start)
	totalOps := *goroutines * *opsPerG

	if err := f.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "close:", err)
	}

	fmt.Println("\n================ RESULTS =================")
	fmt.Printf("Total Operations : %s\n", humanize.Comma(int64(totalOps)))
	fmt.Printf("Total Time       : %v\n", duration)
	fmt.Printf("Throughput       : %s ops/sec\n", humanize.Commaf(float64(totalOps)/duration.Seconds()))
	fmt.Printf("Final Size       : %d\n", f.Cache().Size())
	fmt.Println("=========================================")
}
