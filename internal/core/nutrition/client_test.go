package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"meal-engine/internal/core/confirm"
	"meal-engine/internal/infrastructure/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&config.NutritionConfig{
		Enabled: true,
		BaseURL: srv.URL,
		Path:    "/calculate",
		APIKey:  "secret-key",
		Timeout: 2 * time.Second,
	})
}

func TestCalculate(t *testing.T) {
	var got calculateRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/calculate" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret-key" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"nutrition_data":{"kcal":512.5,"protein_g":38,"carbs_g":60,"fat_g":12,"fiber_g":7,"sodium_mg":410}}`))
	})

	items := []confirm.OutboundItem{{Name: "Arroz branco", Grams: 120}, {Name: "salad", Grams: 50}}
	sum, err := c.Calculate(context.Background(), "u-1", items)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if sum.Kcal != 512.5 || sum.ProteinG != 38 || sum.SodiumMg != 410 {
		t.Fatalf("summary = %+v", sum)
	}
	if got.AnalysisType != "nutritional_sum" || got.UserID != "u-1" || len(got.DetectedFoods) != 2 {
		t.Fatalf("request = %+v", got)
	}
	if got.DetectedFoods[1].Name != "salad" || got.DetectedFoods[1].Grams != 50 {
		t.Fatalf("detected foods = %+v", got.DetectedFoods)
	}
}

func TestCalculateErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"rejected", http.StatusOK, `{"success":false,"error":"unknown food"}`},
		{"missing data", http.StatusOK, `{"success":true}`},
		{"invalid json", http.StatusOK, `not json`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			if _, err := c.Calculate(context.Background(), "", []confirm.OutboundItem{{Name: "Ovo", Grams: 50}}); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestDisabledClient(t *testing.T) {
	c := NewClient(&config.NutritionConfig{Enabled: false})
	if c.Enabled() {
		t.Fatalf("disabled client reports enabled")
	}
	if _, err := c.Calculate(context.Background(), "", nil); !errors.Is(err, ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}

func TestRequestIDFromContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	if got := requestIDFrom(ctx); got != "req-1" {
		t.Fatalf("request id = %q", got)
	}
	if got := requestIDFrom(context.Background()); got != "" {
		t.Fatalf("empty context id = %q", got)
	}
}
