package session

import (
	"context"
	"sync"
	"time"

	"meal-engine/internal/infrastructure/config"
	"meal-engine/internal/pkg/common"

	"go.uber.org/zap"
)

// MemoryStore 單機記憶體會話儲存，含 TTL 與 LRU 淘汰
type MemoryStore struct {
	cfg   config.SessionConfig
	mu    sync.Mutex
	store map[string]memoryEntry
	stats memoryStats
	stop  chan struct{}
	once  sync.Once
}

type memoryEntry struct {
	snap        Snapshot
	expiresAt   time.Time
	lastAccess  time.Time
	accessCount int
}

type memoryStats struct {
	hits      int64
	misses    int64
	evictions int64
	errors    int64
}

// NewMemoryStore 創建記憶體儲存並啟動過期清理
func NewMemoryStore(cfg *config.SessionConfig) *MemoryStore {
	m := &MemoryStore{
		cfg:   *cfg,
		store: make(map[string]memoryEntry),
		stop:  make(chan struct{}),
	}
	if m.cfg.CleanupInterval > 0 {
		go m.startCleanup()
	}

	common.LogInfo("會話儲存已初始化",
		zap.String("backend", config.SessionBackendMemory),
		zap.Int("max_size", cfg.MaxSize),
		zap.Duration("ttl", cfg.TTL),
	)
	return m
}

// Get 讀取會話；過期視為不存在
func (m *MemoryStore) Get(ctx context.Context, id string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.store[id]
	if !ok {
		m.stats.misses++
		return nil, ErrNotFound
	}
	now := time.Now()
	if now.After(entry.expiresAt) {
		delete(m.store, id)
		m.stats.evictions++
		m.stats.misses++
		return nil, ErrNotFound
	}

	entry.lastAccess = now
	entry.accessCount++
	m.store[id] = entry
	m.stats.hits++

	snap := entry.snap
	snap.Items = append(snap.Items[:0:0], entry.snap.Items...)
	return &snap, nil
}

// Save 寫入會話並重設 TTL
func (m *MemoryStore) Save(ctx context.Context, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.store[snap.ID]; !exists && m.cfg.MaxSize > 0 && len(m.store) >= m.cfg.MaxSize {
		evicted := m.cleanup()
		if len(m.store) >= m.cfg.MaxSize {
			m.evictLRU()
		}
		if len(m.store) >= m.cfg.MaxSize {
			m.stats.errors++
			common.LogWarn("會話儲存已滿", zap.Int("size", len(m.store)))
			return ErrFull
		}
		common.LogDebug("Session store made room", zap.Int("expired", evicted))
	}

	now := time.Now()
	stored := *snap
	stored.Items = append(snap.Items[:0:0], snap.Items...)
	entry := m.store[snap.ID]
	entry.snap = stored
	entry.expiresAt = now.Add(m.cfg.TTL)
	entry.lastAccess = now
	m.store[snap.ID] = entry
	return nil
}

// Delete 刪除會話；不存在時返回 ErrNotFound
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

// Ping 記憶體儲存永遠可用
func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len 目前的會話數量（含尚未清理的過期項目）
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store)
}

func (m *MemoryStore) startCleanup() {
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			m.cleanup()
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

// cleanup 清理過期會話，呼叫端需持有鎖
func (m *MemoryStore) cleanup() int {
	now := time.Now()
	count := 0
	for id, entry := range m.store {
		if now.After(entry.expiresAt) {
			delete(m.store, id)
			count++
			m.stats.evictions++
		}
	}
	if count > 0 {
		common.LogDebug("Cleaned up expired sessions",
			zap.Int("count", count),
			zap.Int("remaining_size", len(m.store)),
		)
	}
	return count
}

// evictLRU 淘汰存取次數最少、最久未存取的會話
func (m *MemoryStore) evictLRU() {
	var oldestID string
	var oldestAccess time.Time
	var lowestAccessCount int

	for id, entry := range m.store {
		if oldestID == "" ||
			entry.accessCount < lowestAccessCount ||
			(entry.accessCount == lowestAccessCount && entry.lastAccess.Before(oldestAccess)) {
			oldestID = id
			oldestAccess = entry.lastAccess
			lowestAccessCount = entry.accessCount
		}
	}

	if oldestID != "" {
		delete(m.store, oldestID)
		m.stats.evictions++
		common.LogInfo("會話已淘汰(LRU)", zap.String("session_id", oldestID))
	}
}

// GetStats 儲存統計
func (m *MemoryStore) GetStats() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	ratio := 0.0
	if total := m.stats.hits + m.stats.misses; total > 0 {
		ratio = float64(m.stats.hits) / float64(total)
	}
	return map[string]interface{}{
		"size":      len(m.store),
		"max_size":  m.cfg.MaxSize,
		"hits":      m.stats.hits,
		"misses":    m.stats.misses,
		"evictions": m.stats.evictions,
		"errors":    m.stats.errors,
		"hit_ratio": ratio,
	}
}

// Close 停止清理協程並清空會話
func (m *MemoryStore) Close() error {
	m.once.Do(func() { close(m.stop) })

	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = make(map[string]memoryEntry)
	common.LogInfo("會話儲存已關閉",
		zap.Int64("hits", m.stats.hits),
		zap.Int64("misses", m.stats.misses),
		zap.Int64("evictions", m.stats.evictions),
	)
	return nil
}
