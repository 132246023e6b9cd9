// Package secrets defines the SecretsManager collaborator and the
// tenant→platform→env→default credential lookup chain the runtime applies
// on top of it.
package secrets

import (
	"context"
	"os"
)

// Manager is the narrow interface the runtime consumes: get(tenant_id,
// integration) -> map. Set/Delete support the bootstrap and admin paths.
type Manager interface {
	Get(ctx context.Context, tenantID, integration string) (map[string]string, error)
	Set(ctx context.Context, tenantID, integration string, data map[string]string) error
	Delete(ctx context.Context, tenantID, integration string) error
}

// PlatformTenant is the reserved tenant id under which platform-wide
// integration credentials are stored, tried after the caller's own tenant.
const PlatformTenant = "platform"

// ResolveAPIKey implements the fallback chain: the caller's tenant, then the
// platform tenant, then the named environment variable, then defaultValue.
// Each Manager.Get miss or error is swallowed and the chain continues; only
// the env and default steps are guaranteed to succeed.
func ResolveAPIKey(ctx context.Context, mgr Manager, tenantID, integration, envVar, defaultValue string) string {
	if mgr != nil {
		for _, tid := range []string{tenantID, PlatformTenant} {
			if tid == "" {
				continue
			}
			creds, err := mgr.Get(ctx, tid, integration)
			if err != nil {
				continue
			}
			if key := creds["api_key"]; key != "" {
				return key
			}
		}
	}
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return defaultValue
}
