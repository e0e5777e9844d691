package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meal-engine/internal/core/confirm"
	"meal-engine/internal/core/food"
	"meal-engine/internal/infrastructure/config"
)

var (
	// ErrNotFound 會話不存在或已過期
	ErrNotFound = errors.New("session not found")
	// ErrFull 記憶體儲存已達上限且無法淘汰
	ErrFull = errors.New("session store is full")
)

// Snapshot 會話快照，儲存層只保存項目清單
type Snapshot struct {
	ID        string          `json:"session_id" msgpack:"id"`
	Items     []food.LineItem `json:"items" msgpack:"items"`
	CreatedAt time.Time       `json:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" msgpack:"updated_at"`
}

// NewSnapshot 由確認流程建立快照
func NewSnapshot(id string, s *confirm.Session) *Snapshot {
	now := time.Now().UTC()
	return &Snapshot{ID: id, Items: s.Items(), CreatedAt: now, UpdatedAt: now}
}

// Session 還原為可操作的確認流程
func (s *Snapshot) Session() *confirm.Session {
	return confirm.Restore(s.Items)
}

// Update 以確認流程目前的項目覆寫快照
func (s *Snapshot) Update(sess *confirm.Session) {
	s.Items = sess.Items()
	s.UpdatedAt = time.Now().UTC()
}

// Store 會話儲存介面
type Store interface {
	Get(ctx context.Context, id string) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// NewStore 依設定建立儲存後端
func NewStore(cfg *config.Config) (Store, error) {
	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		return NewRedisStore(&cfg.Redis, cfg.Session.TTL)
	case config.SessionBackendMemory, "":
		return NewMemoryStore(&cfg.Session), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}
