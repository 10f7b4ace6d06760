package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/config"
	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/document"
	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/engine"
	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/interview"
	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/prompt"
	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/reranking"
	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/retrieval"
)

// app is the wired interview service shared by the HTTP and MCP servers.
type app struct {
	cfg       config.Config
	service   *interview.Service
	chat      engine.Engine
	embed     engine.Engine
	closeFunc func() error
}

func (a *app) Close() error {
	if a.closeFunc == nil {
		return nil
	}
	return a.closeFunc()
}

func setupLogging(level string, w io.Writer) {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel})))
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	chat, err := engine.New(engine.Options{
		Provider:   cfg.LLM.Provider,
		BaseURL:    cfg.LLM.BaseURL,
		APIKey:     cfg.LLM.APIKey,
		MaxRetries: cfg.LLM.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat backend: %w", err)
	}

	embed := chat
	if cfg.Embedding.Provider != cfg.LLM.Provider || cfg.Embedding.BaseURL != cfg.LLM.BaseURL || cfg.Embedding.APIKey != cfg.LLM.APIKey {
		embed, err = engine.New(engine.Options{
			Provider:   cfg.Embedding.Provider,
			BaseURL:    cfg.Embedding.BaseURL,
			APIKey:     cfg.Embedding.APIKey,
			MaxRetries: cfg.LLM.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("creating embedding backend: %w", err)
		}
	}

	store, closeStore, err := retrieval.OpenStore(ctx, cfg.Retrieval.Backend, cfg.Retrieval.SQLitePath)
	if err != nil {
		return nil, err
	}

	svc := interview.NewService(interview.Options{
		Library:          interview.NewLibrary(cfg.Storage.DataDir, int64(cfg.Server.MaxUploadMB)<<20),
		Chunker:          document.NewChunker(cfg.Chunker.Window, cfg.Chunker.Overlap),
		Indexer:          retrieval.NewIndexer(retrieval.NewEmbedder(embed, cfg.Embedding.Model, cfg.Embedding.Concurrency), store),
		Engine:           chat,
		Model:            cfg.LLM.Model,
		Counter:          prompt.NewTokenCounter(),
		MaxContextTokens: cfg.Retrieval.MaxContextTokens,
		TopK:             cfg.Retrieval.TopK,
		Reranker:         newReranker(cfg, chat),
	})

	return &app{cfg: cfg, service: svc, chat: chat, embed: embed, closeFunc: closeStore}, nil
}

// newReranker returns nil when reranking is off so retrieval skips the
// extra candidates.
func newReranker(cfg config.Config, chat engine.Engine) reranking.Reranker {
	if !cfg.Retrieval.Rerank {
		return nil
	}
	return reranking.New(chat, cfg.LLM.Model, true, cfg.Retrieval.RerankTimeout, reranking.DefaultThreshold)
}

// ensureReady checks both backends and pulls missing local models.
func (a *app) ensureReady(ctx context.Context) error {
	if a.embed == a.chat {
		return engine.EnsureReady(ctx, a.chat, []string{a.cfg.LLM.Model, a.cfg.Embedding.Model}, os.Stderr)
	}
	if err := engine.EnsureReady(ctx, a.chat, []string{a.cfg.LLM.Model}, os.Stderr); err != nil {
		return err
	}
	return engine.EnsureReady(ctx, a.embed, []string{a.cfg.Embedding.Model}, os.Stderr)
}
