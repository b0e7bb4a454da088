// Command kvs is a one-shot CLI client: connect, authenticate, run a
// single ping/set/get/delete, print the result. Adapted from the teacher's
// cmd/test-client/main.go (bare net.Dial + a handful of hand-issued
// commands) and _examples/original_source/src/bin/kvs.rs, rewritten
// against internal/client instead of hand-rolled RESP/byte wrangling.
//
// Usage:
//
//	kvs -addr 127.0.0.1:7379 -user alice -pass secret ping
//	kvs -addr 127.0.0.1:7379 -user alice -pass secret set foo bar
//	kvs -addr 127.0.0.1:7379 -user alice -pass secret get foo
//	kvs -addr 127.0.0.1:7379 -user alice -pass secret delete foo
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kvsd/kvsd/internal/client"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "kvs:", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "127.0.0.1:7379", "server address")
	user := flag.String("user", "", "username")
	pass := flag.String("pass", "", "password")
	insecure := flag.Bool("tls-insecure", false, "connect over TLS without verifying the server certificate")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		return fmt.Errorf("usage: kvs [flags] ping|set <key> <value>|get <key>|delete <key>")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var opts []client.Option
	if *insecure {
		opts = append(opts, client.WithInsecureSkipVerify())
	}

	c, err := client.Dial(ctx, *addr, *user, *pass, opts...)
	if err != nil {
		return err
	}
	defer c.Close()

	switch cmd := args[0]; cmd {
	case "ping":
		t, err := c.Ping(ctx)
		if err != nil {
			return err
		}
		fmt.Println("PONG", t.Format(time.RFC3339Nano))

	case "set":
		if len(args) != 3 {
			return fmt.Errorf("usage: kvs set <key> <value>")
		}
		prior, hadPrior, err := c.Set(ctx, args[1], []byte(args[2]))
		if err != nil {
			return err
		}
		if hadPrior {
			fmt.Printf("OK (replaced %q)\n", prior)
		} else {
			fmt.Println("OK")
		}

	case "get":
		if len(args) != 2 {
			return fmt.Errorf("usage: kvs get <key>")
		}
		value, ok, err := c.Get(ctx, args[1])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("(nil)")
			return nil
		}
		fmt.Println(string(value))

	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("usage: kvs delete <key>")
		}
		prior, hadPrior, err := c.Delete(ctx, args[1])
		if err != nil {
			return err
		}
		if !hadPrior {
			fmt.Println("(nil)")
			return nil
		}
		fmt.Println(string(prior))

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	return nil
}
