package mcpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	mcppkg "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentrt/internal/config"
)

func TestSanitizeNameReplacesSpacesSlashesColons(t *testing.T) {
	out := sanitizeName("server:name/with spaces")
	assert.Equal(t, "server_name_with_spaces", out)
}

func TestRegisterFromConfigSkipsEmptyConfig(t *testing.T) {
	m := NewManager()
	// No servers configured: nothing to connect to, nothing should panic
	// or log an error worth surfacing.
	m.RegisterFromConfig(context.Background(), nil, config.MCPConfig{})
	assert.Empty(t, m.sessions)
}

func TestRegisterOneRejectsMissingName(t *testing.T) {
	m := NewManager()
	err := m.RegisterOne(context.Background(), nil, config.MCPServerConfig{Command: "echo"})
	assert.Error(t, err)
}

func TestRegisterOneRejectsNeitherCommandNorURL(t *testing.T) {
	m := NewManager()
	err := m.RegisterOne(context.Background(), nil, config.MCPServerConfig{Name: "bad"})
	assert.Error(t, err)
}

func TestRegisterOneRejectsPathTraversalCommand(t *testing.T) {
	m := NewManager()
	err := m.RegisterOne(context.Background(), nil, config.MCPServerConfig{Name: "bad", Command: "../../etc/passwd"})
	assert.Error(t, err)
}

func TestRegisterOneRejectsAbsoluteCommandPath(t *testing.T) {
	m := NewManager()
	err := m.RegisterOne(context.Background(), nil, config.MCPServerConfig{Name: "bad", Command: "/bin/sh"})
	assert.Error(t, err)
}

func TestRemoveOneOnUnknownServerIsNoop(t *testing.T) {
	m := NewManager()
	m.RemoveOne("never-registered", nil)
	assert.Empty(t, m.sessions)
}

func TestMCPToolNameNonEmpty(t *testing.T) {
	tool := &mcpTool{server: "s", tool: &mcppkg.Tool{Name: "t", Description: "d"}}
	assert.NotEmpty(t, tool.Name())
}

func TestHeaderRoundTripperInjectsDefaultsWithoutOverwriting(t *testing.T) {
	var seen *http.Request
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		seen = r
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})
	rt := &headerRoundTripper{
		base:     base,
		headers:  map[string]string{"X-Custom": "v1"},
		bearer:   "secret-token",
		origin:   "",
		protocol: "2025-01-01",
	}

	req, err := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://caller.example")

	_, err = rt.RoundTrip(req)
	require.NoError(t, err)

	assert.Equal(t, "application/json, text/event-stream", seen.Header.Get("Accept"))
	assert.Equal(t, "https://caller.example", seen.Header.Get("Origin"), "existing Origin must not be overwritten")
	assert.Equal(t, "2025-01-01", seen.Header.Get("MCP-Protocol-Version"))
	assert.Equal(t, "v1", seen.Header.Get("X-Custom"))
	assert.Equal(t, "Bearer secret-token", seen.Header.Get("Authorization"))

	// The original request object must be untouched (RoundTrip clones it).
	assert.Empty(t, req.Header.Get("X-Custom"))
}

func TestDefaultOriginFallsBackWhenUnset(t *testing.T) {
	assert.Equal(t, "https://agentrt.local", defaultOrigin(""))
	assert.Equal(t, "https://my.example", defaultOrigin("https://my.example"))
}

func TestBuildMCPHTTPClientAppliesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cli := buildMCPHTTPClient(config.MCPServerConfig{
		HTTP: config.MCPHTTPConfig{TimeoutSeconds: 5},
	})
	assert.Equal(t, int64(5), int64(cli.Timeout.Seconds()))

	resp, err := cli.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
