package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	openaiapi "github.com/sashabaranov/go-openai"

	"courserag/internal/chunker"
	"courserag/internal/config"
	"courserag/internal/docparser"
	"courserag/internal/embedding"
	"courserag/internal/embedding/hash"
	"courserag/internal/embedding/openai"
	"courserag/internal/generator"
	"courserag/internal/logger"
	"courserag/internal/rag"
	"courserag/internal/session"
	"courserag/internal/tools"
	"courserag/internal/tui"
	"courserag/internal/vectorstore"
	"courserag/internal/vectorstore/memory"
	"courserag/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, docsDir string
	flag.StringVar(&cfgPath, "config", "config.yaml", "Path to YAML config file")
	flag.StringVar(&docsDir, "docs", "docs", "Directory of course transcript .txt files")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	zlog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	// Assemble components
	var emb embedding.Embedder
	switch cfg.Embedder.Type {
	case "hash", "":
		emb = hash.NewEmbedder(cfg.Embedder.Dim)
	case "openai":
		emb, err = openai.NewClient(openai.Config{
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			Model:     cfg.Embedder.OpenAI.Model,
			BatchSize: cfg.Embedder.OpenAI.BatchSize,
		})
		if err != nil {
			zlog.Fatalw("failed to build embedder", "error", err)
		}
	default:
		zlog.Fatalw("unknown embedder", "type", cfg.Embedder.Type)
	}

	var store vectorstore.Storage
	switch cfg.VectorStore.Type {
	case "memory", "":
		store = memory.NewStorage()
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			zlog.Fatalw("qdrant config missing")
		}
		store, err = qdrant.NewStorage(qdrant.Config{
			URL:       cfg.VectorStore.Qdrant.URL,
			APIKey:    cfg.VectorStore.Qdrant.APIKey,
			Prefix:    cfg.VectorStore.Qdrant.Prefix,
			Dimension: emb.Dimension(),
		})
		if err != nil {
			zlog.Fatalw("failed to connect to qdrant", "error", err)
		}
	default:
		zlog.Fatalw("unknown vector store", "type", cfg.VectorStore.Type)
	}

	index := vectorstore.NewIndex(store, emb, zlog,
		vectorstore.WithMaxResults(cfg.Search.MaxResults),
		vectorstore.WithResolveThreshold(cfg.Search.ResolveThreshold),
	)

	registry := tools.NewRegistry()
	registry.Register(tools.NewCourseSearchTool(index))
	registry.Register(tools.NewCourseOutlineTool(index))

	apiKey := os.Getenv(cfg.Generator.APIKeyEnv)
	if apiKey == "" {
		zlog.Fatalw("missing generation API key", "env", cfg.Generator.APIKeyEnv)
	}
	clientCfg := openaiapi.DefaultConfig(apiKey)
	if cfg.Generator.BaseURL != "" {
		clientCfg.BaseURL = cfg.Generator.BaseURL
	}
	gen := generator.New(openaiapi.NewClientWithConfig(clientCfg), zlog, generator.Config{
		Model:         cfg.Generator.Model,
		MaxTokens:     cfg.Generator.MaxTokens,
		Temperature:   cfg.Generator.Temperature,
		MaxToolRounds: cfg.Generator.MaxToolRounds,
	})

	var sessions session.Store
	switch cfg.Session.Type {
	case "memory", "":
		sessions = session.NewMemoryStore(cfg.Session.MaxTurns)
	case "sqlite":
		sqlStore, err := session.OpenSQLiteStore(cfg.Session.Path, cfg.Session.MaxTurns)
		if err != nil {
			zlog.Fatalw("failed to open session store", "error", err)
		}
		defer sqlStore.Close()
		sessions = sqlStore
	default:
		zlog.Fatalw("unknown session store", "type", cfg.Session.Type)
	}

	parser := docparser.New(chunker.NewSentenceChunker(cfg.Chunker.MaxChars, cfg.Chunker.OverlapChars))
	system := rag.NewSystem(parser, index, registry, gen, sessions, zlog)

	ctx := context.Background()
	courses, chunks, err := system.AddCourseFolder(ctx, docsDir)
	if err != nil {
		zlog.Fatalw("ingestion failed", "error", err)
	}
	zlog.Infow("ingestion complete", "new_courses", courses, "new_chunks", chunks)

	total, _, err := system.Stats(ctx)
	if err != nil {
		zlog.Fatalw("failed to read corpus stats", "error", err)
	}
	summary := fmt.Sprintf("%d courses indexed (%d new, %d new chunks)", total, courses, chunks)

	if _, err := tea.NewProgram(tui.New(system, summary)).Run(); err != nil {
		zlog.Fatalw("tui failed", "error", err)
	}
}
