// Package config loads agentrt's configuration from the environment. There
// is no YAML or JSON config file; everything is an env var, optionally
// sourced from a local .env file during development.
package config

// Config is the fully-resolved process configuration.
type Config struct {
	LLMProvider string // "openai" | "anthropic" | "google"

	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
	Google    GoogleConfig

	Postgres PostgresConfig
	Redis    RedisConfig

	ClickHouse ClickHouseConfig
	Qdrant     QdrantConfig
	Embedding  EmbeddingConfig

	MCP MCPConfig

	Web WebConfig

	Obs ObsConfig

	ToolConcurrency int

	MaxContextTokens int  // MAX_CONTEXT_TOKENS; not read by the memory_loader node, which trims to the graph.MaxContextTokens constant
	RecallEnabled    bool // supplemented vector-memory recall
	RecallTopK       int

	LogPath  string
	LogLevel string

	HTTPAddr string
}

type OpenAIConfig struct {
	APIKey       string
	Model        string
	SummaryModel string
	BaseURL      string
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

type GoogleConfig struct {
	APIKey string
	Model  string
}

type PostgresConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ClickHouseConfig struct {
	DSN            string
	Database       string
	Table          string
	TimeoutSeconds int
}

type QdrantConfig struct {
	Addr       string
	Collection string
}

type EmbeddingConfig struct {
	BaseURL    string
	Path       string
	Model      string
	APIKey     string
	APIHeader  string
	Dimension  int
	TimeoutSec int
}

type MCPConfig struct {
	Servers []MCPServerConfig
}

type MCPServerConfig struct {
	Name             string
	Command          string
	Args             []string
	Env              map[string]string
	URL              string
	KeepAliveSeconds int

	Headers         map[string]string
	BearerToken     string
	Origin          string
	ProtocolVersion string
	HTTP            MCPHTTPConfig
}

// MCPHTTPConfig configures the transport used to reach a remote MCP server.
type MCPHTTPConfig struct {
	ProxyURL           string
	TimeoutSeconds     int
	InsecureSkipVerify bool
}

type WebConfig struct {
	SearXNGURL string
}

type ObsConfig struct {
	OTLP           string
	ServiceName    string
	ServiceVersion string
	Environment    string
}
