// File path: cmd/corpusd/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/corpuskit/corpusd/internal/api"
	"github.com/corpuskit/corpusd/internal/catalog"
	"github.com/corpuskit/corpusd/internal/common"
	"github.com/corpuskit/corpusd/internal/dedup"
	"github.com/corpuskit/corpusd/internal/graph"
	"github.com/corpuskit/corpusd/internal/graph/kuzu"
	"github.com/corpuskit/corpusd/internal/ingest"
	"github.com/corpuskit/corpusd/internal/llm"
	"github.com/corpuskit/corpusd/internal/vector"
)

func main() {
	logger := common.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		logger.Warn("corpusd: .env file not loaded", "error", err)
	} else {
		logger.Info("corpusd: environment loaded from .env")
	}

	addr := flag.String("addr", ":8082", "listen address")
	catalogPath := flag.String("catalog", defaultCatalogPath(), "path to the SQLite catalog database")
	titleThreshold := flag.Int("title-threshold", dedup.DefaultConfig().TitleThreshold, "minimum fuzzy title similarity (1-100) treated as a duplicate")
	chunkSize := flag.Int("chunk-size", 0, "chunk size in characters (0 uses defaults)")
	chunkOverlap := flag.Int("chunk-overlap", -1, "chunk overlap in characters (-1 uses defaults)")
	batchSize := flag.Int("embed-batch", 0, "embedding batch size (0 uses defaults)")
	flag.Parse()

	logger.Info("corpusd: startup initiated", "addr", *addr, "catalog", *catalogPath)

	store, err := catalog.Open(*catalogPath)
	if err != nil {
		logger.Error("corpusd: catalog initialization failed", "error", err)
		fmt.Println("catalog error:", err)
		os.Exit(1)
	}
	defer store.Close()

	provider := llm.NewProvider()
	logger.Info("corpusd: llm provider ready", "provider", provider.Name())

	var vectorStore vector.Store
	if shouldEnableVector() {
		client, err := vector.NewFromEnv(ctx)
		if err != nil {
			logger.Error("corpusd: vector client initialization failed", "error", err)
			fmt.Println("vector client error:", err)
			os.Exit(1)
		}
		defer client.Close()
		vectorStore = client
		if client.Available() {
			logger.Info("corpusd: chromadb available", "collection", client.Collection())
		} else {
			logger.Warn("corpusd: chromadb unreachable", "collection", client.Collection())
		}
	} else {
		logger.Info("corpusd: chromadb not configured")
	}

	var graphClient graph.Client
	kuzuClient, err := kuzu.NewFromEnv(ctx)
	if err != nil {
		logger.Error("corpusd: graph client initialization failed", "error", err)
		fmt.Println("graph client error:", err)
		os.Exit(1)
	}
	if kuzuClient != nil {
		defer kuzuClient.Close()
		graphClient = kuzuClient
		if kuzuClient.Available() {
			if err := kuzuClient.EnsureSchema(ctx); err != nil {
				logger.Warn("corpusd: graph schema setup failed", "error", err)
			} else {
				logger.Info("corpusd: kuzu available")
			}
		} else {
			logger.Warn("corpusd: kuzu unreachable")
		}
	} else {
		logger.Info("corpusd: kuzu graph not configured")
	}

	cfg := ingest.DefaultConfig()
	cfg.Dedup.TitleThreshold = *titleThreshold
	if *chunkSize > 0 {
		cfg.ChunkSize = *chunkSize
	}
	if *chunkOverlap >= 0 {
		cfg.ChunkOverlap = *chunkOverlap
	}
	if *batchSize > 0 {
		cfg.BatchSize = *batchSize
	}

	manager, err := ingest.NewManager(store, provider, vectorStore, graphClient, cfg)
	if err != nil {
		logger.Error("corpusd: pipeline construction failed", "error", err)
		fmt.Println("pipeline error:", err)
		os.Exit(1)
	}

	server, err := api.NewServer(store, manager, provider, vectorStore, graphClient)
	if err != nil {
		logger.Error("corpusd: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	logger.Info("corpusd: server listening", "addr", *addr, "health", "/healthz")
	fmt.Printf("Serving on %s\n", *addr)
	reachable := *addr
	if strings.HasPrefix(reachable, ":") {
		reachable = "localhost" + reachable
	}
	logger.Info("corpusd: verify reachability", "suggestion", fmt.Sprintf("curl http://%s/healthz", reachable))
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Error("corpusd: server stopped", "error", err)
		fmt.Println("server stopped:", err)
	}
}

func defaultCatalogPath() string {
	return filepath.Join("data", "catalog.db")
}

func shouldEnableVector() bool {
	keys := []string{
		"CHROMADB_HOST",
		"CHROMADB_PORT",
		"CHROMADB_SCHEME",
		"CHROMADB_COLLECTION",
		"CHROMADB_API_KEY",
		"CHROMADB_TIMEOUT",
	}
	for _, key := range keys {
		if strings.TrimSpace(os.Getenv(key)) != "" {
			return true
		}
	}
	return false
}
