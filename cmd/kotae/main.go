// Package main is the Kotae CLI entry point.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/chunk"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/history"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/retrieval"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence (for development). If neither
// exists, built-in defaults are used so the first run needs no config file.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); statErr != nil {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// API keys may live in a .env next to the binary.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "query":
		runQuery()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		ingestor := components.Ingestor
		watchSvc = watcher.NewWatcher(
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			cfg.Watch.RecursiveOrDefault(),
			func(path string) {
				report, err := ingestor.IngestFile(context.Background(), path)
				if err != nil {
					logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
					return
				}
				logger.Debug("watch ingest",
					zap.String("path", path),
					zap.String("status", report.Status))
			},
			logger,
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc.SyncExisting()
	}

	srv := server.NewServer(
		components.Ingestor,
		components.Retriever,
		components.Index,
		components.History,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watchSvc != nil {
		watchSvc.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() == 0 {
		fmt.Println("Usage: kotae ingest [flags] <file>...")
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	exitCode := 0
	for _, path := range fs.Args() {
		report, err := components.Ingestor.IngestFile(context.Background(), path)
		if err != nil {
			fmt.Printf("%s: error: %v\n", path, err)
			exitCode = 1
			continue
		}
		switch report.Status {
		case models.IngestSuccess:
			fmt.Printf("%s: %d chunks ingested (%d duplicates skipped)\n",
				path, report.ChunksIngested, report.ChunksSkipped)
		case models.IngestSkipped:
			fmt.Printf("%s: skipped, %s\n", path, report.Reason)
		default:
			fmt.Printf("%s: failed, %s\n", path, report.Reason)
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "query a running server instead of opening the index directly")
	topK := fs.Int("top-k", 0, "number of chunks to retrieve (0 = config default)")
	stream := fs.Bool("stream", false, "stream the answer token by token (requires --server)")
	showSources := fs.Bool("sources", false, "print retrieved sources after the answer")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Println("Usage: kotae query [flags] <question>")
		os.Exit(1)
	}

	if *stream && *serverURL == "" {
		fmt.Println("--stream requires --server")
		os.Exit(1)
	}
	if *serverURL != "" {
		req := models.QueryRequest{Query: query, TopK: *topK}
		if *stream {
			if err := streamViaHTTP(*serverURL, req); err != nil {
				fmt.Printf("Query failed: %v\n", err)
				os.Exit(1)
			}
			return
		}
		resp, err := queryViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Printf("Query failed: %v\n", err)
			os.Exit(1)
		}
		printResponse(resp, *showSources)
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	k := *topK
	if k <= 0 {
		k = cfg.Retrieval.TopK
	}
	resp, err := components.Retriever.Answer(context.Background(), query, k)
	if err != nil {
		fmt.Printf("Query failed: %v\n", err)
		os.Exit(1)
	}
	printResponse(&resp, *showSources)
}

func printResponse(resp *models.QueryResponse, showSources bool) {
	fmt.Println(resp.Answer)
	if !showSources {
		return
	}
	for i, src := range resp.Sources {
		name, _ := src.Metadata["document_name"].(string)
		fmt.Printf("\n[%d] score=%.3f %s\n%s\n", i+1, src.Score, name, utils.Truncate(src.Text, 200))
	}
}

func queryViaHTTP(serverURL string, req models.QueryRequest) (*models.QueryResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(
		strings.TrimSuffix(serverURL, "/")+"/api/v1/rag/query",
		"application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, errBody.Error)
	}
	var result models.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// streamViaHTTP prints tokens as they arrive from the server's NDJSON
// stream endpoint.
func streamViaHTTP(serverURL string, req models.QueryRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	resp, err := http.Post(
		strings.TrimSuffix(serverURL, "/")+"/api/v1/rag/query/stream",
		"application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev models.StreamEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return fmt.Errorf("decode stream event: %w", err)
		}
		switch ev.Type {
		case models.EventToken:
			if token, ok := ev.Value.(string); ok {
				fmt.Print(token)
			}
		case models.EventError:
			fmt.Println()
			return fmt.Errorf("stream error: %s", ev.Message)
		case models.EventDone:
			fmt.Println()
			return nil
		}
	}
	return scanner.Err()
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server base URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(strings.TrimSuffix(*serverURL, "/") + "/api/v1/status")
	if err != nil {
		fmt.Printf("Status request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Printf("Failed to decode status: %v\n", err)
		os.Exit(1)
	}
	out, _ := json.MarshalIndent(status, "", "  ")
	fmt.Println(string(out))
}

// Components holds initialized services.
type Components struct {
	Embedder  embedding.Provider
	LLM       llm.Provider
	Index     vector.Index
	History   *history.Store
	Ingestor  *ingest.Pipeline
	Retriever *retrieval.Pipeline
}

// Close releases all component resources.
func (c *Components) Close() {
	if c.History != nil {
		_ = c.History.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.LLM != nil {
		_ = c.LLM.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	embedder, err := embedding.NewProvider(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("create embedding provider: %w", err)
	}
	llmProvider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		embedder.Close()
		return nil, fmt.Errorf("create llm provider: %w", err)
	}
	index, err := vector.NewIndex(cfg.Storage.IndexType, cfg.Storage.DatabasePath, cfg.Embedding.Dimensions)
	if err != nil {
		llmProvider.Close()
		embedder.Close()
		return nil, fmt.Errorf("create vector index: %w", err)
	}
	historyStore, err := history.NewStore(cfg.Storage.HistoryPath)
	if err != nil {
		index.Close()
		llmProvider.Close()
		embedder.Close()
		return nil, fmt.Errorf("create history store: %w", err)
	}
	splitter, err := chunk.NewSplitter(cfg.Chunking)
	if err != nil {
		historyStore.Close()
		index.Close()
		llmProvider.Close()
		embedder.Close()
		return nil, fmt.Errorf("create splitter: %w", err)
	}

	return &Components{
		Embedder:  embedder,
		LLM:       llmProvider,
		Index:     index,
		History:   historyStore,
		Ingestor:  ingest.NewPipeline(splitter, embedder, index, logger),
		Retriever: retrieval.NewPipeline(embedder, index, llmProvider, logger),
	}, nil
}

func printUsage() {
	fmt.Println(`kotae - retrieval-augmented question answering over your documents

Usage:
  kotae <command> [flags]

Commands:
  server    Start the HTTP API server
  ingest    Ingest documents into the index
  query     Ask a question against the indexed corpus
  status    Show index status from a running server
  version   Print version
  help      Show this help

Examples:
  kotae server --config config.yaml
  kotae ingest docs/handbook.pdf notes.md
  kotae query "how do I rotate the API keys?"
  kotae query --server http://localhost:8080 --stream "summarize the handbook"`)
}
