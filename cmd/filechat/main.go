package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/comigor/filechat/internal/agent"
	"github.com/comigor/filechat/internal/config"
	"github.com/comigor/filechat/internal/llm"
	"github.com/comigor/filechat/internal/logger"
	"github.com/comigor/filechat/internal/server"
	"github.com/comigor/filechat/internal/session"
)

func main() {
	// Optional .env for local development; real config lives in config.yaml.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.Log.Level)

	// Initialize the inference client and the per-session machinery
	llmClient := llm.NewClient(cfg.LLM)
	store := session.NewStore()
	loop := agent.New(llmClient)

	// Initialize router
	mux := http.NewServeMux()
	server.New(store, loop).Register(mux)

	// Start server
	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.L.Info("starting server", "address", serverAddr, "model", cfg.LLM.Model, "base_url", cfg.LLM.BaseURL)
	if err := http.ListenAndServe(serverAddr, mux); err != nil {
		logger.L.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
