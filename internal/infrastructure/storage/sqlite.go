package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"meal-engine/internal/pkg/common"

	_ "modernc.org/sqlite"
)

// created_at 以固定寬度儲存，字串排序即時間排序
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ConfirmedItem 結算後的單一項目（克）
type ConfirmedItem struct {
	Name  string  `json:"name"`
	Grams float64 `json:"grams"`
}

// Confirmation 一次完成的確認紀錄
type Confirmation struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	UserID    string          `json:"user_id,omitempty"`
	Items     []ConfirmedItem `json:"items"`
	Nutrition interface{}     `json:"nutrition,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// SQLiteStorage 確認紀錄儲存
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage 開啟資料庫並建立資料表
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	storage := &SQLiteStorage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// Close 關閉資料庫
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Ping 檢查資料庫連線
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS confirmations (
        id TEXT PRIMARY KEY,
        session_id TEXT NOT NULL,
        user_id TEXT NOT NULL DEFAULT '',
        nutrition TEXT,
        created_at TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS confirmation_items (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        confirmation_id TEXT NOT NULL,
        name TEXT NOT NULL,
        grams REAL NOT NULL,
        FOREIGN KEY (confirmation_id) REFERENCES confirmations(id) ON DELETE CASCADE
    );

    CREATE INDEX IF NOT EXISTS idx_confirmations_user ON confirmations(user_id, created_at);
    CREATE INDEX IF NOT EXISTS idx_items_confirmation ON confirmation_items(confirmation_id);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SaveConfirmation 寫入確認紀錄；ID 或時間為空時自動產生
func (s *SQLiteStorage) SaveConfirmation(ctx context.Context, c *Confirmation) error {
	if c.ID == "" {
		c.ID = common.GenerateUUID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	var nutrition sql.NullString
	if c.Nutrition != nil {
		data, err := common.ToJSON(c.Nutrition)
		if err != nil {
			return fmt.Errorf("failed to encode nutrition: %w", err)
		}
		nutrition = sql.NullString{String: data, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO confirmations (id, session_id, user_id, nutrition, created_at)
        VALUES (?, ?, ?, ?, ?)
    `, c.ID, c.SessionID, c.UserID, nutrition, c.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert confirmation: %w", err)
	}

	for _, item := range c.Items {
		_, err = tx.ExecContext(ctx, `
            INSERT INTO confirmation_items (confirmation_id, name, grams)
            VALUES (?, ?, ?)
        `, c.ID, item.Name, item.Grams)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
	}

	return tx.Commit()
}

// ListConfirmations 依時間倒序列出紀錄；userID 為空時列出全部
func (s *SQLiteStorage) ListConfirmations(ctx context.Context, userID string, limit int) ([]*Confirmation, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
        SELECT id, session_id, user_id, nutrition, created_at
        FROM confirmations
        WHERE 1=1
    `
	args := []interface{}{}
	if userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query confirmations: %w", err)
	}

	var out []*Confirmation
	for rows.Next() {
		c := &Confirmation{}
		var nutrition sql.NullString
		var createdAt string
		if err := rows.Scan(&c.ID, &c.SessionID, &c.UserID, &nutrition, &createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan confirmation: %w", err)
		}
		if c.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		if nutrition.Valid {
			var totals map[string]interface{}
			if err := common.ParseJSON(nutrition.String, &totals); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to decode nutrition: %w", err)
			}
			c.Nutrition = totals
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read confirmations: %w", err)
	}
	rows.Close()

	for _, c := range out {
		if err := s.loadItems(ctx, c); err != nil {
			return nil, fmt.Errorf("failed to load items for confirmation %s: %w", c.ID, err)
		}
	}
	return out, nil
}

func (s *SQLiteStorage) loadItems(ctx context.Context, c *Confirmation) error {
	rows, err := s.db.QueryContext(ctx, `
        SELECT name, grams
        FROM confirmation_items
        WHERE confirmation_id = ?
        ORDER BY id
    `, c.ID)
	if err != nil {
		return fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	c.Items = []ConfirmedItem{}
	for rows.Next() {
		var item ConfirmedItem
		if err := rows.Scan(&item.Name, &item.Grams); err != nil {
			return fmt.Errorf("failed to scan item: %w", err)
		}
		c.Items = append(c.Items, item)
	}
	return rows.Err()
}
