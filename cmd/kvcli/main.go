// cmd/kvcli is the CLI entry-point built with Cobra.
//
// Usage:
//
//	kvcli put mykey "hello world"      --server http://localhost:8080
//	kvcli get mykey                    --server http://localhost:8080
//	kvcli delete mykey                 --server http://localhost:8080
//	kvcli cluster nodes                --server http://localhost:8080
//	kvcli cluster join seed1:7947,seed2:7947 --server http://localhost:8080
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppriyankuu/gokv/internal/client"
)

var (
	serverAddr string
	timeout    time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "kvcli",
		Short: "CLI client for the gokv distributed cache",
	}

	root.PersistentFlags().StringVarP(&serverAddr, "server", "s",
		"http://localhost:8080", "gokv node HTTP address")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second,
		"HTTP request timeout")

	root.AddCommand(putCmd(), getCmd(), deleteCmd(), clusterCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ─── put ──────────────────────────────────────────────────────────────────────

func putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Store a key-value pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			resp, err := c.Put(context.Background(), args[0], args[1])
			if err != nil {
				return err
			}
			prettyPrint(resp)
			return nil
		},
	}
}

// ─── get ──────────────────────────────────────────────────────────────────────

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Retrieve a value by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			resp, err := c.Get(context.Background(), args[0])
			if err == client.ErrNotFound {
				fmt.Printf("key %q not found\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			prettyPrint(resp)
			return nil
		},
	}
}

// ─── delete ───────────────────────────────────────────────────────────────────

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			if err := c.Delete(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %q\n", args[0])
			return nil
		},
	}
}

// ─── cluster ──────────────────────────────────────────────────────────────────

func clusterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster membership commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "nodes",
		Short: "List every node this server currently knows about",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			resp, err := c.GetRaw(context.Background(), "/cluster/nodes")
			if err != nil {
				return err
			}
			fmt.Println(resp)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "join <seed1,seed2,...>",
		Short: "Ask the server to attempt gossip join against the given seed gossip addresses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			seeds := splitAndTrim(args[0])
			if err := c.Join(context.Background(), seeds); err != nil {
				return err
			}
			fmt.Printf("joined: %v\n", seeds)
			return nil
		},
	})

	return cmd
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func prettyPrint(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(data))
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
