package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndListConfirmations(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := &Confirmation{
		SessionID: "s-1",
		UserID:    "u-1",
		Items:     []ConfirmedItem{{Name: "Arroz branco", Grams: 120}, {Name: "salad", Grams: 50}},
		CreatedAt: base,
	}
	second := &Confirmation{
		SessionID: "s-2",
		UserID:    "u-1",
		Items:     []ConfirmedItem{{Name: "Frango", Grams: 130}},
		Nutrition: map[string]float64{"kcal": 143},
		CreatedAt: base.Add(time.Hour),
	}
	other := &Confirmation{SessionID: "s-3", UserID: "u-2", Items: []ConfirmedItem{{Name: "Ovo", Grams: 50}}, CreatedAt: base}

	for _, c := range []*Confirmation{first, second, other} {
		if err := s.SaveConfirmation(ctx, c); err != nil {
			t.Fatalf("save %s: %v", c.SessionID, err)
		}
		if c.ID == "" {
			t.Fatalf("save did not assign an id")
		}
	}

	got, err := s.ListConfirmations(ctx, "u-1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].SessionID != "s-2" || got[1].SessionID != "s-1" {
		t.Fatalf("list order = %+v", got)
	}
	if !reflect.DeepEqual(got[1].Items, first.Items) {
		t.Fatalf("items = %+v, want %+v", got[1].Items, first.Items)
	}
	if !got[0].CreatedAt.Equal(second.CreatedAt) {
		t.Fatalf("created_at = %v", got[0].CreatedAt)
	}
	if got[1].Nutrition != nil {
		t.Fatalf("confirmation without nutrition returned %v", got[1].Nutrition)
	}

	nutrition, ok := got[0].Nutrition.(map[string]interface{})
	if !ok {
		t.Fatalf("nutrition = %#v", got[0].Nutrition)
	}
	if kcal, _ := nutrition["kcal"].(json.Number).Float64(); kcal != 143 {
		t.Fatalf("kcal = %v", nutrition["kcal"])
	}

	all, err := s.ListConfirmations(ctx, "", 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("list all = %d", len(all))
	}

	limited, _ := s.ListConfirmations(ctx, "", 1)
	if len(limited) != 1 {
		t.Fatalf("limit ignored: %d", len(limited))
	}
}

func TestPing(t *testing.T) {
	if err := newTestStorage(t).Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
