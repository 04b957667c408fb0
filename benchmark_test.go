package cache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	cache "github.com/krisalay/memo-cache"
	"github.com/krisalay/memo-cache/key"
)

func newBenchmarkStore(b *testing.B, opts ...cache.Option) *cache.Store[int] {
	b.Helper()
	s, err := cache.New[int](context.Background(), opts...)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { s.Close() })
	return s
}

func square(_ context.Context, args key.Args) (int, error) {
	n := args.Positional[0].(int)
	return n * n, nil
}

//
// ================= SINGLE THREAD BENCH =================
//

func BenchmarkStoreGetHit(b *testing.B) {
	ctx := context.Background()
	s := newBenchmarkStore(b)
	_ = s.Set(ctx, "key", 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Get(ctx, "key")
	}
}

func BenchmarkStoreGetMiss(b *testing.B) {
	ctx := context.Background()
	s := newBenchmarkStore(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Get(ctx, fmt.Sprintf("miss-%d", i))
	}
}

// BenchmarkStoreSetPersistent measures a write-through flush of a growing
// snapshot to an in-memory backend.
func BenchmarkStoreSetPersistent(b *testing.B) {
	ctx := context.Background()
	s := newBenchmarkStore(b, cache.WithBackend(&memBackend{}))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Set(ctx, fmt.Sprintf("key-%d", i%1000), i)
	}
}

func BenchmarkStoreSetWriteBack(b *testing.B) {
	ctx := context.Background()
	s := newBenchmarkStore(b, cache.WithBackend(&memBackend{}), cache.WithWriteBack())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Set(ctx, fmt.Sprintf("key-%d", i%1000), i)
	}
}

func BenchmarkMemoizeHit(b *testing.B) {
	ctx := context.Background()
	m, err := cache.Memoize(square)
	if err != nil {
		b.Fatal(err)
	}
	defer m.Close()

	args := key.Positional(7)
	_, _ = m.Call(ctx, args)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m.Call(ctx, args)
	}
}

func BenchmarkMemoizeMiss(b *testing.B) {
	ctx := context.Background()
	m, err := cache.Memoize(square)
	if err != nil {
		b.Fatal(err)
	}
	defer m.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m.Call(ctx, key.Positional(i))
	}
}

//
// ================= PARALLEL BENCH =================
//

func BenchmarkStoreParallelGet(b *testing.B) {
	ctx := context.Background()
	s := newBenchmarkStore(b)

	for i := 0; i < 1000; i++ {
		_ = s.Set(ctx, fmt.Sprintf("key-%d", i), i)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = s.Get(ctx, "key-42")
		}
	})
}

func BenchmarkMemoizeParallelHit(b *testing.B) {
	ctx := context.Background()
	m, err := cache.Memoize(square)
	if err != nil {
		b.Fatal(err)
	}
	defer m.Close()

	for i := 0; i < 100; i++ {
		_, _ = m.Call(ctx, key.Positional(i))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = m.Call(ctx, key.Positional(i%100))
			i++
		}
	})
}

//
// ================= HIGH CONCURRENCY TEST =================
//

func BenchmarkMemoizeHighConcurrency(b *testing.B) {
	ctx := context.Background()
	m, err := cache.Memoize(square)
	if err != nil {
		b.Fatal(err)
	}
	defer m.Close()

	b.ResetTimer()

	wg := sync.WaitGroup{}
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < b.N/100; j++ {
				_, _ = m.Call(ctx, key.Positional(j%1000))
			}
		}()
	}
	wg.Wait()
}
