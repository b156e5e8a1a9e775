// Package tracedb 把 agent run 的完整审计 trace 落进 SQLite。
// 行内冗余 owner/status 两列做索引,payload 存整个 run 的 JSON,
// 读路径永远以 payload 为准。
package tracedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tradewind/internal/agent"
	"tradewind/internal/logger"

	_ "modernc.org/sqlite"
)

type Store struct {
	mu sync.Mutex
	db *sql.DB
}

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("trace db 路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS agent_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL UNIQUE,
			owner_id TEXT NOT NULL,
			status TEXT NOT NULL,
			symbol TEXT,
			payload TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_agent_runs_owner_created ON agent_runs(owner_id, created_at DESC, id DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_agent_runs_status ON agent_runs(status);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

var _ agent.TraceRecorder = (*Store)(nil)

// Append 在 run 创建时写入首条记录,重复 Append 不覆盖已有内容。
func (s *Store) Append(ctx context.Context, run *agent.Run) error {
	db, payload, createdAt, err := s.prepare(run)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `INSERT OR IGNORE INTO agent_runs
		(run_id, owner_id, status, symbol, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.OwnerID, string(run.Status), run.Symbol, payload, createdAt, time.Now().UnixMilli())
	return err
}

// Complete 终态整体回写。行不存在时退化为插入,保证幂等。
func (s *Store) Complete(ctx context.Context, run *agent.Run) error {
	db, payload, createdAt, err := s.prepare(run)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `INSERT INTO agent_runs
		(run_id, owner_id, status, symbol, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			status = excluded.status,
			symbol = excluded.symbol,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		run.ID, run.OwnerID, string(run.Status), run.Symbol, payload, createdAt, time.Now().UnixMilli())
	return err
}

func (s *Store) Get(ctx context.Context, runID string) (*agent.Run, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, agent.ErrRunNotFound
	}
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	row := db.QueryRowContext(ctx, `SELECT payload FROM agent_runs WHERE run_id = ?`, runID)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, agent.ErrRunNotFound
		}
		return nil, err
	}
	return decodeRun(payload)
}

// ListByOwner 按创建时间倒序返回某个 owner 的历史 run。
func (s *Store) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*agent.Run, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, fmt.Errorf("owner_id 不能为空")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT payload FROM agent_runs
		WHERE owner_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*agent.Run
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		run, err := decodeRun(payload)
		if err != nil {
			// 坏行不拖垮整个列表。
			logger.Warnf("[审计] 解析 trace payload 失败: %v", err)
			continue
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (s *Store) prepare(run *agent.Run) (*sql.DB, string, int64, error) {
	if run == nil || strings.TrimSpace(run.ID) == "" {
		return nil, "", 0, fmt.Errorf("run id is required")
	}
	db, err := s.handle()
	if err != nil {
		return nil, "", 0, err
	}
	blob, err := json.Marshal(run)
	if err != nil {
		return nil, "", 0, err
	}
	createdAt := run.CreatedAt.UnixMilli()
	if run.CreatedAt.IsZero() {
		createdAt = time.Now().UnixMilli()
	}
	return db, string(blob), createdAt, nil
}

func (s *Store) handle() (*sql.DB, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return nil, fmt.Errorf("trace db 未初始化")
	}
	return db, nil
}

func decodeRun(payload string) (*agent.Run, error) {
	var run agent.Run
	if err := json.Unmarshal([]byte(payload), &run); err != nil {
		return nil, err
	}
	return &run, nil
}
