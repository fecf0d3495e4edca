package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dshills/notesearch-mcp/internal/config"
	"github.com/dshills/notesearch-mcp/internal/embedder"
	"github.com/dshills/notesearch-mcp/internal/fusion"
	"github.com/dshills/notesearch-mcp/internal/mcp"
	"github.com/dshills/notesearch-mcp/internal/rerank"
	"github.com/dshills/notesearch-mcp/internal/searcher"
	"github.com/dshills/notesearch-mcp/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (default ~/.notesearch/config.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("NoteSearch MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		fmt.Printf("Vector Extension: %v\n", storage.VectorExtensionAvailable)
		os.Exit(0)
	}

	// Log startup info to stderr (stdout reserved for MCP protocol)
	log.SetOutput(os.Stderr)
	log.Printf("NoteSearch MCP Server v%s starting...", version)
	log.Printf("Build Mode: %s, Driver: %s, Vector Extension: %v",
		storage.BuildMode, storage.DriverName, storage.VectorExtensionAvailable)

	cfg, err := config.Resolve(*configPath)
	if err != nil {
		log.Fatalf("Failed to resolve config: %v", err)
	}
	log.Printf("DB: %s (%s), oracle model: %s (%s)",
		cfg.DBPath.Value, cfg.DBPath.Source, cfg.OracleModel.Value, cfg.OracleModel.Source)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath.Value), 0o755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath.Value)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	orch, err := buildOrchestrator(cfg, store)
	if err != nil {
		log.Fatalf("Failed to wire search pipeline: %v", err)
	}

	server, err := mcp.NewServer(store, orch)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Println("MCP server ready, listening on stdio...")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}

	log.Println("Server stopped")
}

// buildOrchestrator wires the search pipeline from resolved config. The
// embedder and oracle are optional: without an embedder the semantic path
// is skipped; without a reachable oracle advanced mode degrades to plain
// hybrid retrieval.
func buildOrchestrator(cfg config.ResolvedConfig, store storage.Store) (*searcher.Orchestrator, error) {
	searchCfg := searcher.Config{
		Lexical: searcher.LexicalFromStore(store),
		Fusion:  fusion.DefaultOptions(),
		Rerank:  rerank.DefaultOptions(),
	}
	searchCfg.LexicalWeight, searchCfg.VectorWeight = cfg.Weights()

	emb, err := embedder.NewFromEnv()
	if err != nil {
		log.Printf("Embedder unavailable, semantic search disabled: %v", err)
	} else {
		log.Printf("Embedder: %s (%s, %d dims)", emb.Provider(), emb.Model(), emb.Dimension())
		searchCfg.Embedder = emb
		searchCfg.Vector = searcher.VectorFromStore(store)
	}

	oracle := rerank.NewOracleClient(rerank.OracleConfig{
		BaseURL:      cfg.OracleURL.Value,
		Model:        cfg.OracleModel.Value,
		ProbeTimeout: 2 * time.Second,
		ScoreTimeout: 30 * time.Second,
	})
	searchCfg.Oracle = oracle

	orch, err := searcher.New(searchCfg)
	if err != nil {
		return nil, err
	}

	if !cfg.CachingEnabled() {
		log.Println("Caches disabled by configuration")
		orch.Caches().SetEnabled(false)
	}

	return orch, nil
}
