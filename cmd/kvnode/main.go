// cmd/kvnode is the main entrypoint for a gokv cluster node.
//
// Configuration for "serve" is layered: a defaulted cluster.Config,
// optionally overridden by a YAML file (--config), then by a handful of
// environment variables (see internal/config), then by flags, so a
// single binary can serve any role in the cluster.
//
// Example — single node:
//
//	./kvnode serve --id node1 --cache-addr :9100
//
// Example — 3-node cluster on one host (each node gets its own HTTP port):
//
//	./kvnode serve --id node1 --cache-addr :9100 --http-addr :8080
//	./kvnode serve --id node2 --cache-addr :9102 --http-addr :8081 --seeds localhost:9101
//	./kvnode serve --id node3 --cache-addr :9104 --http-addr :8082 --seeds localhost:9101
//
// (gossip addresses default to the cache port + 1, so "localhost:9101"
// above is node1's gossip address, not its cache address.)
//
// A running node can also be asked, after the fact, to attempt joining
// additional seeds without restarting it:
//
//	./kvnode join localhost:9103,localhost:9105 --admin-addr http://localhost:8080
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ppriyankuu/gokv/internal/api"
	"github.com/ppriyankuu/gokv/internal/client"
	"github.com/ppriyankuu/gokv/internal/cluster"
	"github.com/ppriyankuu/gokv/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:   "kvnode",
		Short: "gokv cluster node daemon",
	}
	root.AddCommand(serveCmd(), joinCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ─── serve ────────────────────────────────────────────────────────────────────

func serveCmd() *cobra.Command {
	var (
		configPath  string
		nodeID      string
		cacheAddr   string
		httpAddr    string
		seedsFlag   string
		joinTimeout time.Duration
		reqTimeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start this node's cache RPC, gossip and HTTP API listeners and attempt to join the cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if nodeID != "" {
				cfg.NodeID = nodeID
			}
			if cacheAddr != "" {
				cfg.CacheAddr = cacheAddr
			}
			if seedsFlag != "" {
				cfg.Seeds = splitAndTrim(seedsFlag)
			}
			if cfg.NodeID == "" {
				cfg.NodeID = "node1"
			}
			if cfg.CacheAddr == "" {
				cfg.CacheAddr = ":9100"
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			return runServe(cfg, httpAddr, joinTimeout, reqTimeout)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "Path to a YAML config file (optional)")
	flags.StringVar(&nodeID, "id", "", "Unique node identifier (overrides config/env)")
	flags.StringVar(&cacheAddr, "cache-addr", "", "Cache RPC listen address host:port (overrides config/env)")
	flags.StringVar(&httpAddr, "http-addr", ":8080", "HTTP API listen address")
	flags.StringVar(&seedsFlag, "seeds", "", "Comma-separated gossip seed addresses")
	flags.DurationVar(&joinTimeout, "join-timeout", 5*time.Second, "Timeout for the initial cluster join attempt")
	flags.DurationVar(&reqTimeout, "request-timeout", time.Second, "Per-request replication timeout")
	return cmd
}

func runServe(cfg cluster.Config, httpAddr string, joinTimeout, reqTimeout time.Duration) error {
	node, err := cluster.NewNode(cfg)
	if err != nil {
		return fmt.Errorf("construct node: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := node.Start(ctx, joinTimeout); err != nil {
		return fmt.Errorf("start node: %w", err)
	}
	log.Printf("node %s: cache rpc on %s, gossip on %s, seeds=%v",
		cfg.NodeID, cfg.CacheAddr, cfg.GossipAddr, cfg.Seeds)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(api.Logger(), api.Recovery())

	handler := api.NewHandler(node, reqTimeout)
	handler.Register(router)

	srv := &http.Server{
		Addr:         httpAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("node %s: http api listening on %s", cfg.NodeID, httpAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("FATAL: http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("node %s: shutting down", cfg.NodeID)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http server shutdown error: %v", err)
	}
	node.Stop(shutdownCtx, 5*time.Second)
	return nil
}

// ─── join ─────────────────────────────────────────────────────────────────────

func joinCmd() *cobra.Command {
	var (
		adminAddr string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "join <seed1,seed2,...>",
		Short: "Ask an already-running node to attempt gossip join against the given seed gossip addresses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(adminAddr, timeout)
			seeds := splitAndTrim(args[0])
			if err := c.Join(context.Background(), seeds); err != nil {
				return err
			}
			fmt.Printf("joined: %v\n", seeds)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&adminAddr, "admin-addr", "http://localhost:8080", "HTTP address of the already-running node to command")
	flags.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP request timeout")
	return cmd
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
