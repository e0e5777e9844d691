package confirmation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"meal-engine/internal/core/confirm"
	"meal-engine/internal/core/food"
	"meal-engine/internal/core/nutrition"
	"meal-engine/internal/core/session"
	"meal-engine/internal/infrastructure/config"
	"meal-engine/internal/infrastructure/storage"

	"github.com/gin-gonic/gin"
)

type fakeCalculator struct {
	err   error
	calls [][]confirm.OutboundItem
}

func (f *fakeCalculator) Calculate(ctx context.Context, userID string, items []confirm.OutboundItem) (*nutrition.Summary, error) {
	f.calls = append(f.calls, items)
	if f.err != nil {
		return nil, f.err
	}
	return &nutrition.Summary{Kcal: 420}, nil
}

type fakeHistory struct {
	saved []*storage.Confirmation
}

func (f *fakeHistory) SaveConfirmation(ctx context.Context, c *storage.Confirmation) error {
	c.ID = "conf-1"
	f.saved = append(f.saved, c)
	return nil
}

func (f *fakeHistory) ListConfirmations(ctx context.Context, userID string, limit int) ([]*storage.Confirmation, error) {
	var out []*storage.Confirmation
	for _, c := range f.saved {
		if userID == "" || c.UserID == userID {
			out = append(out, c)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type testServer struct {
	router *gin.Engine
	store  *session.MemoryStore
}

func newTestServer(t *testing.T, calc Calculator, history History) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := session.NewMemoryStore(&config.SessionConfig{MaxSize: 100, TTL: time.Minute})
	t.Cleanup(func() { store.Close() })

	r := gin.New()
	NewHandler(store, calc, history).Register(r.Group("/confirmations"))
	return &testServer{router: r, store: store}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if out != nil && w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s response %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code
}

func (s *testServer) open(t *testing.T, names ...string) SessionResponse {
	t.Helper()
	dets := make([]food.RawDetection, 0, len(names))
	for _, n := range names {
		dets = append(dets, food.RawDetection{Name: n})
	}
	var resp SessionResponse
	if code := s.do(t, http.MethodPost, "/confirmations", CreateRequest{Detections: dets}, &resp); code != http.StatusCreated {
		t.Fatalf("create = %d", code)
	}
	return resp
}

func ptr(v float64) *float64 { return &v }

func TestCreateAndGet(t *testing.T) {
	s := newTestServer(t, nil, nil)
	created := s.open(t, "Arroz", "alface", "tomate", "sal")

	if created.SessionID == "" || len(created.Items) != 2 {
		t.Fatalf("created = %+v", created)
	}
	if created.Report == nil || created.Report.Ignored != 1 || created.Report.Salad != 2 {
		t.Fatalf("report = %+v", created.Report)
	}

	var got SessionResponse
	if code := s.do(t, http.MethodGet, "/confirmations/"+created.SessionID, nil, &got); code != http.StatusOK {
		t.Fatalf("get = %d", code)
	}
	if len(got.Items) != 2 || got.Items[1].Name != "Salad" || got.Items[1].Quantity != 50 {
		t.Fatalf("items = %+v", got.Items)
	}

	var errResp struct{ Code string }
	if code := s.do(t, http.MethodGet, "/confirmations/missing", nil, &errResp); code != http.StatusNotFound || errResp.Code != "SESSION_NOT_FOUND" {
		t.Fatalf("missing = %d %+v", code, errResp)
	}
}

func TestCreateWithEmptyBody(t *testing.T) {
	s := newTestServer(t, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/confirmations", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("empty create = %d %s", w.Code, w.Body)
	}
}

func TestAddItemOutcomes(t *testing.T) {
	s := newTestServer(t, nil, nil)
	id := s.open(t, "frango").SessionID
	path := "/confirmations/" + id + "/items"

	cases := []struct {
		req    AddItemRequest
		status confirm.AddOutcome
		items  int
	}{
		{AddItemRequest{Name: "orégano", Quantity: ptr(2)}, confirm.AddIgnored, 1},
		{AddItemRequest{Name: "Abacate"}, confirm.AddQuantityRequired, 1},
		{AddItemRequest{Name: "suco de uva", Quantity: ptr(300), Unit: "ml"}, confirm.AddApplied, 2},
	}
	for _, tc := range cases {
		var resp AddItemResponse
		if code := s.do(t, http.MethodPost, path, tc.req, &resp); code != http.StatusOK {
			t.Fatalf("%s: code = %d", tc.req.Name, code)
		}
		if resp.Status != tc.status || len(resp.Items) != tc.items {
			t.Fatalf("%s: resp = %+v", tc.req.Name, resp)
		}
		if tc.status == confirm.AddQuantityRequired && resp.Message == "" {
			t.Fatalf("quantity prompt missing")
		}
	}

	if code := s.do(t, http.MethodPost, path, AddItemRequest{Name: "Leite", Quantity: ptr(1), Unit: "colher"}, nil); code != http.StatusBadRequest {
		t.Fatalf("bad unit = %d", code)
	}
}

func TestEditRemoveSwap(t *testing.T) {
	s := newTestServer(t, nil, nil)
	id := s.open(t, "arroz", "frango").SessionID
	base := "/confirmations/" + id + "/items/"

	var resp SessionResponse
	if code := s.do(t, http.MethodPatch, base+"Frango", EditItemRequest{Quantity: ptr(0)}, &resp); code != http.StatusOK {
		t.Fatalf("edit = %d", code)
	}
	if len(resp.Unfilled) != 1 || resp.Unfilled[0] != "Frango" {
		t.Fatalf("unfilled = %+v", resp.Unfilled)
	}

	if code := s.do(t, http.MethodPatch, base+"Peixe", EditItemRequest{Quantity: ptr(10)}, nil); code != http.StatusNotFound {
		t.Fatalf("edit missing = %d", code)
	}

	if code := s.do(t, http.MethodPost, base+"Arroz%20branco/swap", SwapItemRequest{Name: "Batata", Grams: 170}, &resp); code != http.StatusOK {
		t.Fatalf("swap = %d", code)
	}
	if resp.Items[0].Name != "Batata" || resp.Items[0].Quantity != 170 {
		t.Fatalf("items after swap = %+v", resp.Items)
	}
	if resp.Notice != "" {
		t.Fatalf("unexpected notice = %q", resp.Notice)
	}

	if code := s.do(t, http.MethodDelete, base+"frango", nil, &resp); code != http.StatusOK {
		t.Fatalf("remove = %d", code)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("items after remove = %+v", resp.Items)
	}

	if code := s.do(t, http.MethodDelete, base+"frango", nil, &resp); code != http.StatusOK {
		t.Fatalf("remove absent = %d", code)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("items after second remove = %+v", resp.Items)
	}
}

func TestFinalize(t *testing.T) {
	calc := &fakeCalculator{}
	history := &fakeHistory{}
	s := newTestServer(t, calc, history)
	id := s.open(t, "frango", "leite").SessionID

	s.do(t, http.MethodPatch, "/confirmations/"+id+"/items/Frango", EditItemRequest{Quantity: ptr(0)}, nil)

	var errResp struct {
		Code    string
		Details struct{ Unfilled []string }
	}
	if code := s.do(t, http.MethodPost, "/confirmations/"+id+"/finalize", FinalizeRequest{UserID: "u-1"}, &errResp); code != http.StatusUnprocessableEntity {
		t.Fatalf("incomplete finalize = %d", code)
	}
	if errResp.Code != "QUANTITIES_REQUIRED" || len(errResp.Details.Unfilled) != 1 || errResp.Details.Unfilled[0] != "Frango" {
		t.Fatalf("error = %+v", errResp)
	}
	if len(calc.calls) != 0 {
		t.Fatalf("calculator called for an incomplete session")
	}

	s.do(t, http.MethodPatch, "/confirmations/"+id+"/items/Frango", EditItemRequest{Quantity: ptr(150)}, nil)

	var resp FinalizeResponse
	if code := s.do(t, http.MethodPost, "/confirmations/"+id+"/finalize", FinalizeRequest{UserID: "u-1"}, &resp); code != http.StatusOK {
		t.Fatalf("finalize = %d", code)
	}
	want := []confirm.OutboundItem{{Name: "Frango", Grams: 150}, {Name: "Leite", Grams: 206}}
	if len(resp.Items) != 2 || resp.Items[0] != want[0] || resp.Items[1] != want[1] {
		t.Fatalf("items = %+v", resp.Items)
	}
	if resp.Nutrition == nil || resp.Nutrition.Kcal != 420 || resp.ConfirmationID != "conf-1" {
		t.Fatalf("resp = %+v", resp)
	}
	if len(history.saved) != 1 || history.saved[0].UserID != "u-1" {
		t.Fatalf("history = %+v", history.saved)
	}
	if _, err := s.store.Get(context.Background(), id); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("finalized session still stored: %v", err)
	}

	var list struct{ Confirmations []*storage.Confirmation }
	if code := s.do(t, http.MethodGet, "/confirmations/history?user_id=u-1", nil, &list); code != http.StatusOK || len(list.Confirmations) != 1 {
		t.Fatalf("history = %d %+v", code, list)
	}
	if code := s.do(t, http.MethodGet, "/confirmations/history?limit=abc", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("bad limit = %d", code)
	}
}

func TestFinalizeKeepsSessionWhenCalculationFails(t *testing.T) {
	s := newTestServer(t, &fakeCalculator{err: errors.New("connection refused")}, nil)
	id := s.open(t, "ovo").SessionID

	var errResp struct{ Code string }
	if code := s.do(t, http.MethodPost, "/confirmations/"+id+"/finalize", nil, &errResp); code != http.StatusBadGateway {
		t.Fatalf("finalize = %d", code)
	}
	if errResp.Code != "NUTRITION_SERVICE_ERROR" {
		t.Fatalf("code = %s", errResp.Code)
	}
	if _, err := s.store.Get(context.Background(), id); err != nil {
		t.Fatalf("session lost after failed calculation: %v", err)
	}
}

func TestFinalizeWithoutCalculator(t *testing.T) {
	s := newTestServer(t, nil, nil)
	id := s.open(t, "alface").SessionID

	var resp FinalizeResponse
	if code := s.do(t, http.MethodPost, "/confirmations/"+id+"/finalize", nil, &resp); code != http.StatusOK {
		t.Fatalf("finalize = %d", code)
	}
	if len(resp.Items) != 1 || resp.Items[0].Name != "salad" || resp.Nutrition != nil {
		t.Fatalf("resp = %+v", resp)
	}

	if code := s.do(t, http.MethodGet, "/confirmations/history", nil, nil); code != http.StatusServiceUnavailable {
		t.Fatalf("history without storage = %d", code)
	}
}

func TestCancel(t *testing.T) {
	s := newTestServer(t, nil, nil)
	id := s.open(t, "arroz").SessionID

	if code := s.do(t, http.MethodDelete, "/confirmations/"+id, nil, nil); code != http.StatusNoContent {
		t.Fatalf("cancel = %d", code)
	}
	if code := s.do(t, http.MethodDelete, "/confirmations/"+id, nil, nil); code != http.StatusNotFound {
		t.Fatalf("second cancel = %d", code)
	}
}

func TestSwapOntoExistingItemReportsNotice(t *testing.T) {
	s := newTestServer(t, nil, nil)
	id := s.open(t, "arroz", "batata").SessionID

	var resp SessionResponse
	path := "/confirmations/" + id + "/items/Arroz%20branco/swap"
	if code := s.do(t, http.MethodPost, path, SwapItemRequest{Name: "Batata", Grams: 170}, &resp); code != http.StatusOK {
		t.Fatalf("swap = %d", code)
	}
	if len(resp.Items) != 1 || resp.Items[0].Quantity != 170 {
		t.Fatalf("items = %+v", resp.Items)
	}
	if resp.Notice == "" {
		t.Fatalf("merge into an existing row must carry a notice")
	}
}
