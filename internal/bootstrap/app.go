package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"

	"resume-matcher/internal/analyzer"
	"resume-matcher/internal/batch"
	"resume-matcher/internal/budget"
	"resume-matcher/internal/documents"
	"resume-matcher/internal/events"
	"resume-matcher/internal/extract"
	"resume-matcher/internal/llm"
	"resume-matcher/internal/llm/gemini"
	"resume-matcher/internal/llm/openai"
	"resume-matcher/internal/services/health"
	"resume-matcher/internal/shared/config"
	"resume-matcher/internal/shared/server"
	"resume-matcher/internal/shared/storage/db"
	"resume-matcher/internal/shared/storage/object"
	localstore "resume-matcher/internal/shared/storage/object/local"
	s3store "resume-matcher/internal/shared/storage/object/s3"
	"resume-matcher/internal/skills"
)

// OpenAI's default model when none is configured.
const openAIDefaultModel = "gpt-4o-mini"

// App holds shared dependencies and the wired router.
type App struct {
	Config      config.Config
	Router      *gin.Engine
	DB          *sql.DB
	Redis       *redis.Client
	AMQP        *amqp.Connection
	Store       object.ObjectStore
	Events      events.Publisher
	LLM         llm.Client
	Model       string
	Budget      budget.LedgerFactory
	Extractors  *extract.Registry
	Coordinator *batch.Coordinator
	Handler     *batch.Handler
	Health      *health.Service
}

// Option adjusts Build for tests and embedding callers.
type Option func(*buildOptions)

type buildOptions struct {
	llmClient llm.Client
	publisher events.Publisher
}

// WithLLMClient skips provider construction and uses c.
func WithLLMClient(c llm.Client) Option {
	return func(o *buildOptions) { o.llmClient = c }
}

// WithPublisher skips event backend construction and uses p.
func WithPublisher(p events.Publisher) Option {
	return func(o *buildOptions) { o.publisher = p }
}

// Build prepares shared dependencies and wires routes. A missing reasoning-service credential
// is logged and leaves the match routes answering 503.
func Build(cfg config.Config, opts ...Option) (*App, error) {
	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()
	app := &App{Config: cfg}

	if err := app.buildBudget(ctx); err != nil {
		app.Close()
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	app.Events = bo.publisher
	if app.Events == nil {
		if err := app.buildEvents(ctx); err != nil {
			app.Close()
			return nil, err
		}
	}

	app.LLM, app.Model = bo.llmClient, modelFor(cfg)
	if app.LLM == nil {
		app.LLM = buildLLM(ctx, cfg)
	}

	reg, err := extract.NewRegistry(cfg.Matcher.AllowedExtensions...)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("matcher extensions: %w", err)
	}
	if cfg.Matcher.FileBacked {
		reg.WrapFileBacked(os.TempDir())
	}
	app.Extractors = reg

	app.Coordinator = &batch.Coordinator{
		Extractors: reg,
		Analysis: analyzer.Options{
			Client: app.LLM,
			Skills: skills.NewIndicatorExtractor(cfg.Matcher.SkillIndicators...),
			Model:  app.Model,
		},
		Budget:       app.Budget,
		Events:       app.Events,
		MaxDocuments: cfg.Matcher.MaxDocuments,
		Concurrency:  cfg.Matcher.Concurrency,
	}
	app.Handler = batch.NewHandler(app.Coordinator, documents.NewLoader(app.Store), cfg.Matcher.IncludeSkills)

	var shared budget.Ledger
	if s, ok := app.Budget.(budget.Shared); ok {
		shared = s.Ledger
	}
	app.Health = health.NewService(cfg.LLMProvider, app.Model, shared)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:       cfg,
		MatchHandler: app.Handler,
		Health:       app.Health,
	})
	return app, nil
}

// Close releases connections opened by Build.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.AMQP != nil {
		_ = a.AMQP.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func (a *App) buildBudget(ctx context.Context) error {
	cfg := a.Config
	scope, err := budget.ParseScope(cfg.BudgetScope)
	if err != nil {
		return err
	}

	switch scope {
	case budget.ScopePostgres:
		sqlDB, err := buildDB(ctx, cfg)
		if err != nil {
			if !isDevLike(cfg.Env) {
				return err
			}
			log.Printf("bootstrap: postgres ledger unavailable; using process budget: %v", err)
			scope = budget.ScopeProcess
			break
		}
		a.DB = sqlDB
		a.Budget = budget.Shared{Ledger: budget.NewPGLedger(sqlDB, cfg.BudgetLedgerKey, cfg.BudgetLimit)}
	case budget.ScopeRedis:
		client, err := buildRedis(ctx, cfg.RedisURL)
		if err != nil {
			if !isDevLike(cfg.Env) {
				return err
			}
			log.Printf("bootstrap: redis ledger unavailable; using process budget: %v", err)
			scope = budget.ScopeProcess
			break
		}
		a.Redis = client
		a.Budget = budget.Shared{Ledger: budget.NewRedisLedger(client, cfg.BudgetLedgerKey, cfg.BudgetLimit)}
	}

	switch scope {
	case budget.ScopeProcess:
		a.Budget = budget.Shared{Ledger: budget.NewTracker(cfg.BudgetLimit)}
	case budget.ScopeBatch:
		a.Budget = budget.PerBatch{Limit: cfg.BudgetLimit}
	}
	log.Printf("bootstrap: budget scope %s, limit %d", scope, cfg.BudgetLimit)
	return nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for BUDGET_SCOPE=postgres")
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildRedis(ctx context.Context, url string) (*redis.Client, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("REDIS_URL is required for BUDGET_SCOPE=redis")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func (a *App) buildEvents(ctx context.Context) error {
	cfg := a.Config
	var (
		pub events.Publisher
		err error
	)
	switch cfg.EventsBackend {
	case "amqp":
		var p *events.AMQPPublisher
		p, a.AMQP, err = events.DialAMQP(cfg.RabbitMQURL, cfg.EventsExchange)
		pub = p
	case "sqs":
		pub, err = events.NewSQSPublisher(ctx, cfg.AWSRegion, cfg.EventsSQSQueueURL)
	default:
		a.Events = events.Nop{}
		return nil
	}
	if err != nil {
		if !isDevLike(cfg.Env) {
			return fmt.Errorf("events backend %s: %w", cfg.EventsBackend, err)
		}
		log.Printf("bootstrap: events backend %s unavailable; events disabled: %v", cfg.EventsBackend, err)
		a.Events = events.Nop{}
		return nil
	}
	a.Events = pub
	return nil
}

// buildLLM returns nil when the client cannot be constructed, typically for a missing key.
func buildLLM(ctx context.Context, cfg config.Config) llm.Client {
	var (
		client llm.Client
		err    error
	)
	switch cfg.LLMProvider {
	case "gemini", "google":
		var c *gemini.Client
		c, err = gemini.NewClient(ctx, gemini.Options{APIKey: cfg.LLMAPIKey, Timeout: cfg.LLMTimeout})
		client = c
	default:
		var c *openai.Client
		c, err = openai.NewClient(openai.Options{
			Provider: cfg.LLMProvider,
			APIKey:   cfg.LLMAPIKey,
			BaseURL:  cfg.LLMBaseURL,
			Timeout:  cfg.LLMTimeout,
		})
		client = c
	}
	if err != nil {
		log.Printf("bootstrap: llm provider %s not configured: %v", cfg.LLMProvider, err)
		return nil
	}
	return client
}

func modelFor(cfg config.Config) string {
	if m := strings.TrimSpace(cfg.LLMModel); m != "" {
		return m
	}
	switch cfg.LLMProvider {
	case "gemini", "google":
		return gemini.DefaultModel
	case "openai":
		return openAIDefaultModel
	default:
		return llm.DefaultModel
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
