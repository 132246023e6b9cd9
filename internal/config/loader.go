package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables. A local .env is
// loaded first (via Overload, so .env values win over inherited shell
// environment — deterministic local development behavior).
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{}

	cfg.LLMProvider = firstNonEmpty(strings.TrimSpace(os.Getenv("LLM_PROVIDER")), "openai")

	cfg.OpenAI.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	cfg.OpenAI.Model = firstNonEmpty(strings.TrimSpace(os.Getenv("OPENAI_MODEL")), "gpt-4o-mini")
	cfg.OpenAI.SummaryModel = firstNonEmpty(strings.TrimSpace(os.Getenv("OPENAI_SUMMARY_MODEL")), cfg.OpenAI.Model)
	cfg.OpenAI.BaseURL = strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))

	cfg.Anthropic.APIKey = strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	cfg.Anthropic.Model = firstNonEmpty(strings.TrimSpace(os.Getenv("ANTHROPIC_MODEL")), "claude-3-5-sonnet-latest")

	cfg.Google.APIKey = strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))
	cfg.Google.Model = firstNonEmpty(strings.TrimSpace(os.Getenv("GOOGLE_MODEL")), "gemini-1.5-flash")

	cfg.Postgres.DSN = strings.TrimSpace(os.Getenv("POSTGRES_DSN"))

	cfg.Redis.Addr = firstNonEmpty(strings.TrimSpace(os.Getenv("REDIS_ADDR")), "localhost:6379")
	cfg.Redis.Password = strings.TrimSpace(os.Getenv("REDIS_PASSWORD"))
	cfg.Redis.DB = intFromEnv("REDIS_DB", 0)

	cfg.ClickHouse.DSN = strings.TrimSpace(os.Getenv("CLICKHOUSE_DSN"))
	cfg.ClickHouse.Database = firstNonEmpty(strings.TrimSpace(os.Getenv("CLICKHOUSE_DATABASE")), "agentrt")
	cfg.ClickHouse.Table = firstNonEmpty(strings.TrimSpace(os.Getenv("CLICKHOUSE_USAGE_TABLE")), "agent_usage")
	cfg.ClickHouse.TimeoutSeconds = intFromEnv("CLICKHOUSE_TIMEOUT_SECONDS", 5)

	cfg.Qdrant.Addr = strings.TrimSpace(os.Getenv("QDRANT_ADDR"))
	cfg.Qdrant.Collection = firstNonEmpty(strings.TrimSpace(os.Getenv("QDRANT_COLLECTION")), "thread_summaries")

	cfg.Embedding.BaseURL = firstNonEmpty(strings.TrimSpace(os.Getenv("EMBED_BASE_URL")), "https://api.openai.com")
	cfg.Embedding.Path = firstNonEmpty(strings.TrimSpace(os.Getenv("EMBED_PATH")), "/v1/embeddings")
	cfg.Embedding.Model = firstNonEmpty(strings.TrimSpace(os.Getenv("EMBED_MODEL")), "text-embedding-3-small")
	cfg.Embedding.APIKey = strings.TrimSpace(os.Getenv("EMBED_API_KEY"))
	cfg.Embedding.APIHeader = firstNonEmpty(strings.TrimSpace(os.Getenv("EMBED_API_HEADER")), "Authorization")
	cfg.Embedding.Dimension = intFromEnv("EMBED_DIMENSION", 1536)
	cfg.Embedding.TimeoutSec = intFromEnv("EMBED_TIMEOUT_SECONDS", 30)

	cfg.MaxContextTokens = intFromEnv("MAX_CONTEXT_TOKENS", 4000)
	cfg.RecallEnabled = boolFromEnv("RECALL_ENABLED", false)
	cfg.RecallTopK = intFromEnv("RECALL_TOP_K", 3)

	cfg.LogPath = strings.TrimSpace(os.Getenv("LOG_PATH"))
	cfg.LogLevel = firstNonEmpty(strings.TrimSpace(os.Getenv("LOG_LEVEL")), "info")

	cfg.HTTPAddr = firstNonEmpty(strings.TrimSpace(os.Getenv("HTTP_ADDR")), ":8080")

	cfg.Obs.OTLP = strings.TrimSpace(os.Getenv("OTLP_ENDPOINT"))
	cfg.Obs.ServiceName = firstNonEmpty(strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME")), "agentrt")
	cfg.Obs.ServiceVersion = firstNonEmpty(strings.TrimSpace(os.Getenv("OTEL_SERVICE_VERSION")), "dev")
	cfg.Obs.Environment = firstNonEmpty(strings.TrimSpace(os.Getenv("OTEL_ENVIRONMENT")), "development")

	for _, srv := range parseMCPServers(os.Getenv("MCP_SERVERS")) {
		cfg.MCP.Servers = append(cfg.MCP.Servers, srv)
	}

	cfg.Web.SearXNGURL = strings.TrimSpace(os.Getenv("SEARXNG_URL"))
	cfg.ToolConcurrency = intFromEnv("TOOL_CONCURRENCY", 4)

	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func intFromEnv(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

// parseMCPServers parses a compact "name@command arg1,arg2;name2@url" form.
// Names separated by ';', name/target separated by '@'. A target starting
// with "http" is treated as a remote URL, otherwise as a local command with
// space-separated args.
func parseMCPServers(raw string) []MCPServerConfig {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []MCPServerConfig
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "@", 2)
		if len(parts) != 2 {
			continue
		}
		name := strings.TrimSpace(parts[0])
		target := strings.TrimSpace(parts[1])
		srv := MCPServerConfig{Name: name, KeepAliveSeconds: 30}
		if strings.HasPrefix(target, "http") {
			srv.URL = target
		} else {
			fields := strings.Fields(target)
			if len(fields) > 0 {
				srv.Command = fields[0]
				srv.Args = fields[1:]
			}
		}
		applyMCPServerOverrides(&srv)
		out = append(out, srv)
	}
	return out
}

// applyMCPServerOverrides fills in per-server transport details from
// MCP_<NAME>_* env vars, upper-cased with non-alphanumerics turned to '_'.
// These are all optional; the compact MCP_SERVERS form alone is enough for
// a plain stdio or unauthenticated HTTP server.
func applyMCPServerOverrides(srv *MCPServerConfig) {
	prefix := "MCP_" + envKey(srv.Name) + "_"

	srv.BearerToken = strings.TrimSpace(os.Getenv(prefix + "BEARER_TOKEN"))
	srv.Origin = strings.TrimSpace(os.Getenv(prefix + "ORIGIN"))
	srv.ProtocolVersion = strings.TrimSpace(os.Getenv(prefix + "PROTOCOL_VERSION"))
	srv.HTTP.ProxyURL = strings.TrimSpace(os.Getenv(prefix + "PROXY_URL"))
	srv.HTTP.TimeoutSeconds = intFromEnv(prefix+"TIMEOUT_SECONDS", 30)
	srv.HTTP.InsecureSkipVerify = boolFromEnv(prefix+"INSECURE_SKIP_VERIFY", false)

	if v := strings.TrimSpace(os.Getenv(prefix + "HEADERS")); v != "" {
		srv.Headers = parseKVList(v)
	}
	if v := strings.TrimSpace(os.Getenv(prefix + "ENV")); v != "" {
		srv.Env = parseKVList(v)
	}
	if ka := intFromEnv(prefix+"KEEPALIVE_SECONDS", 0); ka > 0 {
		srv.KeepAliveSeconds = ka
	}
}

// parseKVList parses a "K1=V1,K2=V2" list into a map.
func parseKVList(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) != 2 || kv[0] == "" {
			continue
		}
		out[kv[0]] = kv[1]
	}
	return out
}

func envKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
