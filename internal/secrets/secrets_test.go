package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeManager struct {
	data map[string]map[string]string // tenantID -> integration -> api_key
}

func (f *fakeManager) Get(ctx context.Context, tenantID, integration string) (map[string]string, error) {
	byIntegration, ok := f.data[tenantID]
	if !ok {
		return nil, errors.New("not found")
	}
	v, ok := byIntegration[integration]
	if !ok {
		return nil, errors.New("not found")
	}
	return map[string]string{"api_key": v}, nil
}

func (f *fakeManager) Set(ctx context.Context, tenantID, integration string, data map[string]string) error {
	return nil
}

func (f *fakeManager) Delete(ctx context.Context, tenantID, integration string) error { return nil }

func TestResolveAPIKey_PrefersTenantOverPlatform(t *testing.T) {
	mgr := &fakeManager{data: map[string]map[string]string{
		"tenant-a": {"openai": "tenant-key"},
		"platform": {"openai": "platform-key"},
	}}
	got := ResolveAPIKey(context.Background(), mgr, "tenant-a", "openai", "OPENAI_API_KEY", "")
	assert.Equal(t, "tenant-key", got)
}

func TestResolveAPIKey_FallsBackToPlatform(t *testing.T) {
	mgr := &fakeManager{data: map[string]map[string]string{
		"platform": {"openai": "platform-key"},
	}}
	got := ResolveAPIKey(context.Background(), mgr, "tenant-a", "openai", "OPENAI_API_KEY", "")
	assert.Equal(t, "platform-key", got)
}

func TestResolveAPIKey_FallsBackToEnvThenDefault(t *testing.T) {
	t.Setenv("AGENTRT_TEST_KEY", "env-key")
	got := ResolveAPIKey(context.Background(), &fakeManager{data: map[string]map[string]string{}}, "tenant-a", "openai", "AGENTRT_TEST_KEY", "default-key")
	assert.Equal(t, "env-key", got)

	got = ResolveAPIKey(context.Background(), nil, "tenant-a", "openai", "UNSET_ENV_VAR_XYZ", "default-key")
	assert.Equal(t, "default-key", got)
}
