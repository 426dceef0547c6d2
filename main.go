package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	openai "github.com/sashabaranov/go-openai"

	"hnrag/api"
	"hnrag/crawl"
	"hnrag/docs"
	"hnrag/hn"
	"hnrag/pipeline"
	"hnrag/rag"
	"hnrag/sse"
	"hnrag/store"
	"hnrag/worker"
)

type appConfig struct {
	dataDir string
	dbPath  string

	categories         string
	storiesPerCategory int
	maxCommentDepth    int
	maxTopComments     int
	maxChildComments   int
	batchSize          int
	articles           bool

	openaiAPIKey   string
	openaiBaseURL  string
	embeddingModel string
	chatModel      string
	topK           int

	addr     string
	port     int
	interval time.Duration
}

func (c *appConfig) registerData(fs *flag.FlagSet) {
	fs.StringVar(&c.dataDir, "data-dir", "data", "Directory for the ledger, snapshot, and database")
	fs.StringVar(&c.dbPath, "db-path", "", "Path to SQLite database file (default: <data-dir>/hnrag.db)")
}

func (c *appConfig) registerCrawl(fs *flag.FlagSet) {
	def := crawl.DefaultConfig()
	fs.StringVar(&c.categories, "categories", strings.Join(def.Categories, ","), "Comma-separated category endpoints to crawl")
	fs.IntVar(&c.storiesPerCategory, "stories-per-category", def.StoriesPerCategory, "Root stories fetched per category")
	fs.IntVar(&c.maxCommentDepth, "max-comment-depth", def.MaxCommentDepth, "Maximum comment tree depth")
	fs.IntVar(&c.maxTopComments, "max-top-comments", def.MaxTopComments, "Top-level comments expanded per story")
	fs.IntVar(&c.maxChildComments, "max-child-comments", def.MaxChildComments, "Child comments expanded per comment")
	fs.IntVar(&c.batchSize, "batch-size", def.BatchSize, "Concurrent fetches per batch")
}

func (c *appConfig) registerOpenAI(fs *flag.FlagSet) {
	fs.StringVar(&c.openaiAPIKey, "openai-api-key", "", "API key for the OpenAI-compatible endpoint")
	fs.StringVar(&c.openaiBaseURL, "openai-base-url", "", "Base URL override for OpenAI-compatible endpoints")
	fs.StringVar(&c.embeddingModel, "embedding-model", string(openai.SmallEmbedding3), "Embedding model")
	fs.StringVar(&c.chatModel, "chat-model", openai.GPT4oMini, "Chat model for answering")
}

func (c *appConfig) crawlConfig() crawl.Config {
	cfg := crawl.DefaultConfig()
	if c.categories != "" {
		var cats []string
		for _, cat := range strings.Split(c.categories, ",") {
			if cat = strings.TrimSpace(cat); cat != "" {
				cats = append(cats, cat)
			}
		}
		cfg.Categories = cats
	}
	cfg.StoriesPerCategory = c.storiesPerCategory
	cfg.MaxCommentDepth = c.maxCommentDepth
	cfg.MaxTopComments = c.maxTopComments
	cfg.MaxChildComments = c.maxChildComments
	cfg.BatchSize = c.batchSize
	return cfg
}

func (c *appConfig) ledgerPath() string   { return filepath.Join(c.dataDir, "processed_ids.json") }
func (c *appConfig) snapshotPath() string { return filepath.Join(c.dataDir, "snapshot.json") }

func (c *appConfig) databasePath() string {
	if c.dbPath != "" {
		return c.dbPath
	}
	return filepath.Join(c.dataDir, "hnrag.db")
}

func (c *appConfig) openaiClient() (*openai.Client, error) {
	if c.openaiAPIKey == "" {
		return nil, fmt.Errorf("openai-api-key must be set (flag or OPENAI_API_KEY)")
	}
	conf := openai.DefaultConfig(c.openaiAPIKey)
	if c.openaiBaseURL != "" {
		conf.BaseURL = c.openaiBaseURL
	}
	return openai.NewClientWithConfig(conf), nil
}

func main() {
	var cfg appConfig
	ffOpts := []ff.Option{ff.WithEnvVars()}

	crawlFS := flag.NewFlagSet("hnrag crawl", flag.ExitOnError)
	cfg.registerData(crawlFS)
	cfg.registerCrawl(crawlFS)
	crawlCmd := &ffcli.Command{
		Name:       "crawl",
		ShortUsage: "hnrag crawl [flags]",
		ShortHelp:  "Fetch new stories, comments, and users into a snapshot",
		FlagSet:    crawlFS,
		Options:    ffOpts,
		Exec:       func(ctx context.Context, _ []string) error { return runCrawl(ctx, &cfg) },
	}

	pipelineFS := flag.NewFlagSet("hnrag pipeline", flag.ExitOnError)
	cfg.registerData(pipelineFS)
	cfg.registerCrawl(pipelineFS)
	cfg.registerOpenAI(pipelineFS)
	pipelineFS.BoolVar(&cfg.articles, "articles", false, "Also extract and index linked articles")
	pipelineCmd := &ffcli.Command{
		Name:       "pipeline",
		ShortUsage: "hnrag pipeline [flags]",
		ShortHelp:  "Crawl, then format, embed, and index new content",
		FlagSet:    pipelineFS,
		Options:    ffOpts,
		Exec: func(ctx context.Context, _ []string) error {
			p, db, err := buildPipeline(&cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			_, err = p.Run(ctx)
			return err
		},
	}

	askFS := flag.NewFlagSet("hnrag ask", flag.ExitOnError)
	cfg.registerData(askFS)
	cfg.registerOpenAI(askFS)
	askFS.IntVar(&cfg.topK, "k", 6, "Number of chunks to retrieve")
	askCmd := &ffcli.Command{
		Name:       "ask",
		ShortUsage: "hnrag ask [flags] <question>",
		ShortHelp:  "Answer a question against the indexed corpus",
		FlagSet:    askFS,
		Options:    ffOpts,
		Exec:       func(ctx context.Context, args []string) error { return runAsk(ctx, &cfg, args) },
	}

	serveFS := flag.NewFlagSet("hnrag serve", flag.ExitOnError)
	cfg.registerData(serveFS)
	cfg.registerCrawl(serveFS)
	cfg.registerOpenAI(serveFS)
	serveFS.BoolVar(&cfg.articles, "articles", false, "Also extract and index linked articles")
	serveFS.IntVar(&cfg.topK, "k", 6, "Number of chunks to retrieve per question")
	serveFS.StringVar(&cfg.addr, "addr", "localhost", "Address to listen on")
	serveFS.IntVar(&cfg.port, "port", 8080, "Port to listen on")
	serveFS.DurationVar(&cfg.interval, "interval", 30*time.Minute, "Background pipeline interval")
	serveCmd := &ffcli.Command{
		Name:       "serve",
		ShortUsage: "hnrag serve [flags]",
		ShortHelp:  "Serve the question-answering API with background ingest",
		FlagSet:    serveFS,
		Options:    ffOpts,
		Exec:       func(ctx context.Context, _ []string) error { return runServe(ctx, &cfg) },
	}

	root := &ffcli.Command{
		ShortUsage:  "hnrag <subcommand> [flags]",
		Subcommands: []*ffcli.Command{crawlCmd, pipelineCmd, askCmd, serveCmd},
		Exec:        func(context.Context, []string) error { return flag.ErrHelp },
	}

	if err := root.ParseAndRun(context.Background(), os.Args[1:]); err != nil && !errors.Is(err, flag.ErrHelp) {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func runCrawl(ctx context.Context, cfg *appConfig) error {
	ledger := crawl.NewLedger(cfg.ledgerPath())
	crawler := crawl.New(hn.NewClient(), cfg.crawlConfig())

	res, err := crawler.Run(ctx, ledger.Load())
	if err != nil {
		return err
	}
	if res.AllFailed() {
		return fmt.Errorf("all %d fetches failed, skipping persist", res.Attempted)
	}
	if res.Empty() {
		slog.Info("nothing new to crawl")
		return nil
	}

	writer := crawl.NewSnapshotWriter(cfg.snapshotPath(), ledger)
	meta := crawl.NewMetadata(cfg.crawlConfig(), uuid.NewString())
	if err := writer.Write(res, meta); err != nil {
		return err
	}
	slog.Info("snapshot written", "path", cfg.snapshotPath(),
		"stories", len(res.Stories), "comments", len(res.Comments), "users", len(res.Users))
	return nil
}

func buildPipeline(cfg *appConfig) (*pipeline.Pipeline, *sql.DB, error) {
	client, err := cfg.openaiClient()
	if err != nil {
		return nil, nil, err
	}

	db, err := store.Open(cfg.databasePath())
	if err != nil {
		return nil, nil, err
	}

	ledger := crawl.NewLedger(cfg.ledgerPath())
	p := pipeline.New(pipeline.Options{
		Source:        hn.NewClient(),
		Crawl:         cfg.crawlConfig(),
		Ledger:        ledger,
		Snapshots:     crawl.NewSnapshotWriter(cfg.snapshotPath(), ledger),
		Corpus:        store.NewCorpus(db),
		Chunks:        store.NewChunkStore(db),
		Embedder:      rag.NewOpenAIEmbedder(client, cfg.embeddingModel),
		Splitter:      docs.NewSplitter(0, 0),
		FetchArticles: cfg.articles,
	})
	return p, db, nil
}

func runAsk(ctx context.Context, cfg *appConfig, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("a question is required: hnrag ask \"what is ...\"")
	}

	client, err := cfg.openaiClient()
	if err != nil {
		return err
	}
	db, err := store.Open(cfg.databasePath())
	if err != nil {
		return err
	}
	defer db.Close()

	engine := rag.NewEngine(
		rag.NewOpenAIEmbedder(client, cfg.embeddingModel),
		store.NewChunkStore(db),
		client,
		cfg.chatModel,
		cfg.topK,
	)

	answer, err := engine.Ask(ctx, question)
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)
	fmt.Println()
	fmt.Println("Sources:")
	for _, s := range answer.Sources {
		fmt.Printf("  - %s %s (score %.3f)\n", s.ItemType, s.ItemID, s.Score)
	}
	return nil
}

func runServe(ctx context.Context, cfg *appConfig) error {
	client, err := cfg.openaiClient()
	if err != nil {
		return err
	}
	db, err := store.Open(cfg.databasePath())
	if err != nil {
		return err
	}
	defer db.Close()

	corpus := store.NewCorpus(db)
	chunks := store.NewChunkStore(db)
	embedder := rag.NewOpenAIEmbedder(client, cfg.embeddingModel)
	engine := rag.NewEngine(embedder, chunks, client, cfg.chatModel, cfg.topK)

	ledger := crawl.NewLedger(cfg.ledgerPath())
	p := pipeline.New(pipeline.Options{
		Source:        hn.NewClient(),
		Crawl:         cfg.crawlConfig(),
		Ledger:        ledger,
		Snapshots:     crawl.NewSnapshotWriter(cfg.snapshotPath(), ledger),
		Corpus:        corpus,
		Chunks:        chunks,
		Embedder:      embedder,
		Splitter:      docs.NewSplitter(0, 0),
		FetchArticles: cfg.articles,
	})

	broker := sse.NewBroker(1000)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	poller := worker.NewPoller(p, broker, cfg.interval)
	poller.Start(workerCtx)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/ask", api.NewAskHandler(engine).Ask)
	mux.HandleFunc("POST /api/refresh", api.NewRefreshHandler(poller).Refresh)
	mux.Handle("GET /api/health", api.NewHealthHandler(corpus))
	mux.Handle("GET /api/events", broker)

	listenAddr := fmt.Sprintf("%s:%d", cfg.addr, cfg.port)
	srv := &http.Server{Addr: listenAddr, Handler: mux}

	go func() {
		slog.Info("server starting", "addr", listenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		slog.Info("received signal, shutting down", "signal", sig)
	case <-ctx.Done():
	}

	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
