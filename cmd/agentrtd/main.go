// Command agentrtd is the agent runtime's process entrypoint: it wires the
// store, secrets, checkpoint, tool, and model collaborators together and
// serves the HTTP API described in the runtime's external interfaces.
package main

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"agentrt/internal/accounting"
	"agentrt/internal/checkpoint"
	checkpointpg "agentrt/internal/checkpoint/postgres"
	"agentrt/internal/config"
	"agentrt/internal/dispatch"
	"agentrt/internal/httpapi"
	"agentrt/internal/llm"
	anthropicllm "agentrt/internal/llm/anthropic"
	googlellm "agentrt/internal/llm/google"
	openaillm "agentrt/internal/llm/openai"
	"agentrt/internal/mcpclient"
	"agentrt/internal/memory"
	"agentrt/internal/observability"
	"agentrt/internal/queue"
	"agentrt/internal/runtime"
	"agentrt/internal/secrets"
	secretsredis "agentrt/internal/secrets/redis"
	"agentrt/internal/store"
	storememory "agentrt/internal/store/memory"
	storepg "agentrt/internal/store/postgres"
	"agentrt/internal/tools"
	"agentrt/internal/tools/llmtool"
	"agentrt/internal/tools/utility"
	"agentrt/internal/tools/web"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		_ = godotenv.Load("example.env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	observability.InitLogger(cfg.LogPath, cfg.LogLevel)

	shutdown, err := observability.InitOTel(context.Background(), cfg.Obs)
	if err != nil {
		log.Warn().Err(err).Msg("otel init failed, continuing without observability")
		shutdown = nil
	}
	if shutdown != nil {
		defer func() { _ = shutdown(context.Background()) }()
	}

	httpClient := observability.NewHTTPClient(nil)

	ctx := context.Background()

	dataStore, checkpoints := mustPersistence(ctx, cfg)

	var secretsManager secrets.Manager
	if cfg.Redis.Addr != "" {
		secretsManager = secretsredis.New(cfg.Redis)
	}

	provider, model := mustProvider(cfg, httpClient)

	registry := tools.NewRegistry()
	registry.Register(web.NewFetchTool())
	if cfg.Web.SearXNGURL != "" {
		registry.Register(web.NewSearchTool(cfg.Web.SearXNGURL))
	}
	registry.Register(utility.NewScratchpadTool())
	registry.Register(llmtool.New(provider, model))

	mcpManager := mcpclient.NewManager()
	mcpManager.RegisterFromConfig(ctx, registry, cfg.MCP)
	defer mcpManager.Close()

	usageSink, err := accounting.NewClickHouseSink(ctx, cfg.ClickHouse)
	if err != nil {
		log.Warn().Err(err).Msg("usage accounting sink unavailable, continuing without it")
		usageSink = nil
	}
	if usageSink != nil {
		defer usageSink.Close()
	}

	var recallSvc *memory.Service
	if cfg.RecallEnabled && cfg.Qdrant.Addr != "" {
		vectorStore, err := memory.NewQdrantStore(ctx, cfg.Qdrant.Addr, cfg.Qdrant.Collection, cfg.Embedding.Dimension)
		if err != nil {
			log.Warn().Err(err).Msg("vector recall store unavailable, continuing without recall")
		} else {
			recallSvc = memory.NewService(memory.NewHTTPEmbedder(cfg.Embedding), vectorStore)
			defer recallSvc.Close()
		}
	}

	rt := &runtime.Service{
		Store:           dataStore,
		Checkpoints:     checkpoints,
		Secrets:         secretsManager,
		NewProvider:     newProviderFactory(cfg, httpClient),
		Model:           model,
		Summarizer:      provider,
		SummaryModel:    cfg.OpenAI.SummaryModel,
		Tools:           registry,
		ToolConcurrency: cfg.ToolConcurrency,
	}
	if usageSink != nil {
		rt.Accounting = usageSink
	}
	if recallSvc != nil {
		rt.Recall = recallSvc
		rt.RecallTopK = cfg.RecallTopK
		rt.Memory = recallSvc
	}

	loop := &dispatch.Loop{
		Queue:   queue.New(),
		Runtime: rt,
		Store:   dataStore,
	}

	server := &httpapi.Server{
		Store:    dataStore,
		Queue:    loop.Queue,
		Dispatch: loop,
	}

	mux := httpapi.NewRouter(server)

	log.Info().Str("addr", cfg.HTTPAddr).Msg("agentrt listening")
	if err := http.ListenAndServe(cfg.HTTPAddr, mux); err != nil {
		log.Fatal().Err(err).Msg("http server stopped")
	}
}

func mustPersistence(ctx context.Context, cfg config.Config) (store.Store, checkpoint.Store) {
	if cfg.Postgres.DSN == "" {
		log.Warn().Msg("POSTGRES_DSN not set, using in-process store (not durable)")
		return storememory.New(), checkpoint.NewMemoryStore()
	}

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	dataStore := storepg.New(pool)
	if err := dataStore.Setup(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to set up store schema")
	}

	checkpoints := checkpointpg.New(pool)
	if err := checkpoints.Setup(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to set up checkpoint schema")
	}

	return dataStore, checkpoints
}

// mustProvider builds the primary provider used for tool delegation and
// summarization, bound to whatever credential is available at startup.
func mustProvider(cfg config.Config, httpClient *http.Client) (llm.Provider, string) {
	switch cfg.LLMProvider {
	case "anthropic":
		return anthropicllm.New(cfg.Anthropic, httpClient), cfg.Anthropic.Model
	case "google":
		c, err := googlellm.New(cfg.Google, httpClient)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init google provider")
		}
		return c, cfg.Google.Model
	default:
		return openaillm.New(cfg.OpenAI, httpClient), cfg.OpenAI.Model
	}
}

// newProviderFactory returns a ProviderFactory that rebuilds a provider per
// run with the tenant-resolved API key substituted in, since the provider
// constructors bind a credential at construction time.
func newProviderFactory(cfg config.Config, httpClient *http.Client) runtime.ProviderFactory {
	return func(apiKey string) llm.Provider {
		switch cfg.LLMProvider {
		case "anthropic":
			c := cfg.Anthropic
			if apiKey != "" {
				c.APIKey = apiKey
			}
			return anthropicllm.New(c, httpClient)
		case "google":
			c := cfg.Google
			if apiKey != "" {
				c.APIKey = apiKey
			}
			client, err := googlellm.New(c, httpClient)
			if err != nil {
				log.Error().Err(err).Msg("failed to build per-run google provider, falling back to startup client")
				fallback, _ := googlellm.New(cfg.Google, httpClient)
				return fallback
			}
			return client
		default:
			c := cfg.OpenAI
			if apiKey != "" {
				c.APIKey = apiKey
			}
			return openaillm.New(c, httpClient)
		}
	}
}
