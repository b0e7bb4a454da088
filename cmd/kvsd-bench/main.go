// Command kvsd-bench drives concurrent clients against a running kvsd
// server and reports throughput. Adapted from the teacher's
// cmd/flashdb-benchmark/main.go (fixed client pool, atomic completed/error
// counters, requests-per-second summary) and
// _examples/original_source/benches/kvsd_benchmark.rs for the set/get/mixed
// test-type split, rewritten against internal/client instead of a raw
// protocol writer/reader pair.
//
// Usage:
//
//	kvsd-bench -addr 127.0.0.1:7379 -user alice -pass secret -clients 50 -requests 100000 -test mixed
package main

import (
	"context"
	"flag"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kvsd/kvsd/internal/client"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:7379", "server address")
	user := flag.String("user", "", "username")
	pass := flag.String("pass", "", "password")
	clients := flag.Int("clients", 50, "number of parallel clients")
	requests := flag.Int("requests", 100000, "total number of requests")
	testType := flag.String("test", "mixed", "test type: set, get, mixed, ping")
	flag.Parse()

	fmt.Println("====== kvsd benchmark ======")
	fmt.Printf("server: %s\n", *addr)
	fmt.Printf("clients: %d\n", *clients)
	fmt.Printf("requests: %d\n", *requests)
	fmt.Printf("test: %s\n\n", *testType)

	var completed, failed int64
	reqPerClient := *requests / *clients

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(clientID, reqPerClient, *addr, *user, *pass, *testType, &completed, &failed)
		}(i)
	}
	wg.Wait()

	elapsed := time.Since(start)
	fmt.Println("====== results ======")
	fmt.Printf("total time: %v\n", elapsed)
	fmt.Printf("completed: %d\n", completed)
	fmt.Printf("failed: %d\n", failed)
	if elapsed > 0 {
		fmt.Printf("requests/sec: %.2f\n", float64(completed)/elapsed.Seconds())
	}
}

func runClient(clientID, n int, addr, user, pass, testType string, completed, failed *int64) {
	ctx := context.Background()
	c, err := client.Dial(ctx, addr, user, pass)
	if err != nil {
		atomic.AddInt64(failed, int64(n))
		return
	}
	defer c.Close()

	for j := 0; j < n; j++ {
		key := fmt.Sprintf("bench:%d:%d", clientID, j)
		value := []byte(fmt.Sprintf("value:%d:%d", clientID, j))

		var err error
		switch op(testType, j) {
		case "set":
			_, _, err = c.Set(ctx, key, value)
		case "get":
			_, _, err = c.Get(ctx, key)
		case "ping":
			_, err = c.Ping(ctx)
		}

		if err != nil {
			atomic.AddInt64(failed, 1)
			continue
		}
		atomic.AddInt64(completed, 1)
	}
}

func op(testType string, i int) string {
	switch testType {
	case "set", "get", "ping":
		return testType
	case "mixed":
		if i%2 == 0 {
			return "set"
		}
		return "get"
	default:
		return "ping"
	}
}
