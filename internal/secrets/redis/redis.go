// Package redis is the Redis-backed SecretsManager used in production.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"agentrt/internal/config"
)

func New(cfg config.RedisConfig) *Manager {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Manager{client: client}
}

type Manager struct {
	client *redis.Client
}

func (m *Manager) Close() error {
	return m.client.Close()
}

func key(tenantID, integration string) string {
	return fmt.Sprintf("secrets:%s:%s", tenantID, integration)
}

func (m *Manager) Get(ctx context.Context, tenantID, integration string) (map[string]string, error) {
	val, err := m.client.Get(ctx, key(tenantID, integration)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("no secret for %s/%s", tenantID, integration)
		}
		return nil, err
	}
	var data map[string]string
	if err := json.Unmarshal([]byte(val), &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (m *Manager) Set(ctx context.Context, tenantID, integration string, data map[string]string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return m.client.Set(ctx, key(tenantID, integration), raw, 0).Err()
}

func (m *Manager) Delete(ctx context.Context, tenantID, integration string) error {
	return m.client.Del(ctx, key(tenantID, integration)).Err()
}
