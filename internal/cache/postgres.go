package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/iWorld-y/verity/internal/config"
	"github.com/iWorld-y/verity/internal/contracts"
	"github.com/iWorld-y/verity/internal/logger"
)

// PostgresStore 基于 PostgreSQL 的缓存后端。单表，(namespace, key) 为主键，
// 读取时按 expires_at 过滤，重写即整体覆盖。
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore 建立连接并初始化缓存表。
func NewPostgresStore(cfg config.DBConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) initSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS cache_entries (
		namespace TEXT NOT NULL,
		key TEXT NOT NULL,
		payload BYTEA NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (namespace, key)
	)`)
	if err != nil {
		return fmt.Errorf("failed to create cache_entries: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool) {
	return s.read(ctx, NamespaceQuery, key)
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	return s.write(ctx, NamespaceQuery, key, value, ttl)
}

func (s *PostgresStore) GetDocument(ctx context.Context, key string) (*contracts.Document, bool) {
	payload, ok := s.read(ctx, NamespaceDocument, key)
	if !ok {
		return nil, false
	}
	var doc contracts.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		logger.Log.Debugf("缓存文档反序列化失败 [%s]: %v", key, err)
		return nil, false
	}
	return &doc, true
}

func (s *PostgresStore) SetDocument(ctx context.Context, key string, doc *contracts.Document, ttl time.Duration) bool {
	payload, err := json.Marshal(doc)
	if err != nil {
		logger.Log.Debugf("缓存文档序列化失败 [%s]: %v", key, err)
		return false
	}
	return s.write(ctx, NamespaceDocument, key, payload, ttl)
}

func (s *PostgresStore) read(ctx context.Context, namespace, key string) ([]byte, bool) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM cache_entries
		WHERE namespace = $1 AND key = $2 AND expires_at > CURRENT_TIMESTAMP`,
		namespace, key).Scan(&payload)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Log.Debugf("缓存读取失败 [%s:%s]: %v", namespace, key, err)
		}
		return nil, false
	}
	return payload, true
}

func (s *PostgresStore) write(ctx context.Context, namespace, key string, payload []byte, ttl time.Duration) bool {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (namespace, key, payload, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (namespace, key) DO UPDATE
		SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at, created_at = CURRENT_TIMESTAMP`,
		namespace, key, payload, time.Now().Add(ttl))
	if err != nil {
		logger.Log.Debugf("缓存写入失败 [%s:%s]: %v", namespace, key, err)
		return false
	}
	return true
}
