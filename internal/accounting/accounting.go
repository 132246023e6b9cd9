// Package accounting persists a best-effort usage/cost record to ClickHouse
// for each run completed through runtime.Service.ProcessAndSave; runs made
// through runtime.Service.Stream, as the dispatch loop makes them, record
// no entry. A sink failure is logged and never
// fails the run it's recording, the same swallow discipline the memory
// loader applies to a failed summarization call.
package accounting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/rs/zerolog/log"

	"agentrt/internal/config"
)

// Entry is one completed run's usage/cost record.
type Entry struct {
	ThreadID       string
	TenantID       string
	Model          string
	InputTokens    int64
	OutputTokens   int64
	TotalTokens    int64
	CostUSD        float64
	ResponseTimeMs int64
	Timestamp      time.Time
}

// Sink is the collaborator runtime.Service records usage through. Narrow so
// tests can substitute a fake that just appends to a slice.
type Sink interface {
	Record(ctx context.Context, e Entry)
}

// ClickHouseSink writes Entry rows to a single MergeTree table, created on
// first use if it doesn't already exist.
type ClickHouseSink struct {
	conn    clickhouse.Conn
	table   string
	timeout time.Duration
}

// NewClickHouseSink opens a connection and ensures the usage table exists.
// Returns (nil, nil) when cfg.DSN is empty, so callers can treat accounting
// as optional without a branch at every call site.
func NewClickHouseSink(ctx context.Context, cfg config.ClickHouseConfig) (*ClickHouseSink, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, nil
	}

	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("accounting: parse clickhouse dsn: %w", err)
	}
	if cfg.Database != "" {
		opts.Auth.Database = cfg.Database
	} else if opts.Auth.Database == "" {
		opts.Auth.Database = "agentrt"
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("accounting: open clickhouse connection: %w", err)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		table = "agent_usage"
	}

	sink := &ClickHouseSink{conn: conn, table: table, timeout: timeout}

	ctxSetup, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := sink.setup(ctxSetup, opts.Auth.Database); err != nil {
		return nil, err
	}
	return sink, nil
}

func (s *ClickHouseSink) setup(ctx context.Context, db string) error {
	if err := s.conn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db)); err != nil {
		return fmt.Errorf("accounting: create database %s: %w", db, err)
	}

	sql := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s.%s (
	Timestamp DateTime64(3),
	ThreadId String,
	TenantId String,
	Model LowCardinality(String),
	InputTokens UInt32,
	OutputTokens UInt32,
	TotalTokens UInt32,
	CostUSD Float64,
	ResponseTimeMs UInt32
) ENGINE = MergeTree()
ORDER BY (TenantId, Timestamp)
TTL Timestamp + INTERVAL 90 DAY
SETTINGS index_granularity = 8192
`, db, s.table)
	if err := s.conn.Exec(ctx, sql); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return fmt.Errorf("accounting: create table %s: %w", s.table, err)
	}
	log.Info().Str("table", fmt.Sprintf("%s.%s", db, s.table)).Msg("usage accounting table ready")
	return nil
}

// Record inserts e. A failure is logged, never propagated: accounting is
// observability, not a correctness dependency of the run it describes.
func (s *ClickHouseSink) Record(ctx context.Context, e Entry) {
	if s == nil || s.conn == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	ctxExec, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sql := fmt.Sprintf(`INSERT INTO %s (Timestamp, ThreadId, TenantId, Model, InputTokens, OutputTokens, TotalTokens, CostUSD, ResponseTimeMs) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	err := s.conn.Exec(ctxExec, sql,
		e.Timestamp, e.ThreadID, e.TenantID, e.Model,
		uint32(e.InputTokens), uint32(e.OutputTokens), uint32(e.TotalTokens),
		e.CostUSD, uint32(e.ResponseTimeMs),
	)
	if err != nil {
		log.Warn().Err(err).Str("thread_id", e.ThreadID).Msg("usage accounting insert failed")
	}
}

// Close releases the underlying connection.
func (s *ClickHouseSink) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
