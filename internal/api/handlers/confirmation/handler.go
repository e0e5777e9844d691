package confirmation

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"net/http"
	"strconv"
	"sync"

	"meal-engine/internal/api/handlers"
	"meal-engine/internal/core/confirm"
	"meal-engine/internal/core/food"
	"meal-engine/internal/core/nutrition"
	"meal-engine/internal/core/session"
	"meal-engine/internal/infrastructure/storage"
	"meal-engine/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	lockStripes         = 64
)

// History 確認紀錄儲存
type History interface {
	SaveConfirmation(ctx context.Context, c *storage.Confirmation) error
	ListConfirmations(ctx context.Context, userID string, limit int) ([]*storage.Confirmation, error)
}

// Calculator 營養計算服務
type Calculator interface {
	Calculate(ctx context.Context, userID string, items []confirm.OutboundItem) (*nutrition.Summary, error)
}

// CreateRequest 以辨識結果開啟確認流程
type CreateRequest struct {
	Detections []food.RawDetection `json:"detections"`
}

// AddItemRequest 手動新增項目
type AddItemRequest struct {
	Name     string   `json:"name" binding:"required"`
	Quantity *float64 `json:"quantity,omitempty"`
	Unit     string   `json:"unit,omitempty"`
}

// EditItemRequest 修改數量
type EditItemRequest struct {
	Quantity *float64 `json:"quantity" binding:"required"`
}

// SwapItemRequest 以替代食物取代項目
type SwapItemRequest struct {
	Name  string  `json:"name" binding:"required"`
	Grams float64 `json:"grams" binding:"required,gt=0"`
}

// FinalizeRequest 結算
type FinalizeRequest struct {
	UserID string `json:"user_id,omitempty"`
}

// SessionResponse 確認流程目前的內容
type SessionResponse struct {
	SessionID string                `json:"session_id"`
	Items     []food.LineItem       `json:"items"`
	Unfilled  []string              `json:"unfilled,omitempty"`
	Report    *confirm.IngestReport `json:"report,omitempty"`
	Notice    string                `json:"notice,omitempty"`
}

// AddItemResponse 新增項目的結果
type AddItemResponse struct {
	Status  confirm.AddOutcome `json:"status"`
	Message string             `json:"message,omitempty"`
	Items   []food.LineItem    `json:"items"`
}

// FinalizeResponse 結算結果
type FinalizeResponse struct {
	SessionID      string                 `json:"session_id"`
	ConfirmationID string                 `json:"confirmation_id,omitempty"`
	Items          []confirm.OutboundItem `json:"items"`
	Nutrition      *nutrition.Summary     `json:"nutrition,omitempty"`
}

// Handler 確認流程處理器
type Handler struct {
	store      session.Store
	calculator Calculator
	history    History
	locks      [lockStripes]sync.Mutex
}

// NewHandler 創建處理器；calculator 與 history 可為 nil
func NewHandler(store session.Store, calculator Calculator, history History) *Handler {
	return &Handler{store: store, calculator: calculator, history: history}
}

// Register 註冊路由
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("/history", h.History)
	rg.GET("/:id", h.Get)
	rg.DELETE("/:id", h.Cancel)
	rg.POST("/:id/items", h.AddItem)
	rg.PATCH("/:id/items/:name", h.EditItem)
	rg.DELETE("/:id/items/:name", h.RemoveItem)
	rg.POST("/:id/items/:name/swap", h.SwapItem)
	rg.POST("/:id/finalize", h.Finalize)
}

// lock 同一會話的修改依序執行
func (h *Handler) lock(id string) func() {
	hash := fnv.New32a()
	hash.Write([]byte(id))
	mu := &h.locks[hash.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

// Create 開啟確認流程
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		handlers.WriteError(c, common.NewValidationError("invalid request format: "+err.Error()))
		return
	}

	sess := confirm.NewSession()
	report := sess.Ingest(req.Detections)
	snap := session.NewSnapshot(common.GenerateUUID(), sess)
	if err := h.store.Save(c.Request.Context(), snap); err != nil {
		handlers.WriteError(c, err)
		return
	}

	common.LogInfo("確認流程已建立",
		zap.String("session_id", snap.ID),
		zap.Int("accepted", report.Accepted),
		zap.Int("ignored", report.Ignored),
		zap.String("request_id", handlers.RequestID(c)),
	)
	c.JSON(http.StatusCreated, SessionResponse{
		SessionID: snap.ID,
		Items:     snap.Items,
		Unfilled:  sess.Unfilled(),
		Report:    &report,
	})
}

// Get 查詢確認流程
func (h *Handler) Get(c *gin.Context) {
	snap, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, SessionResponse{
		SessionID: snap.ID,
		Items:     snap.Items,
		Unfilled:  snap.Session().Unfilled(),
	})
}

// mutate 讀取會話、套用修改並寫回；fn 返回 false 時不寫回
func (h *Handler) mutate(c *gin.Context, fn func(*confirm.Session) (bool, error)) (*session.Snapshot, bool) {
	id := c.Param("id")
	defer h.lock(id)()

	ctx := c.Request.Context()
	snap, err := h.store.Get(ctx, id)
	if err != nil {
		handlers.WriteError(c, err)
		return nil, false
	}

	sess := snap.Session()
	changed, err := fn(sess)
	if err != nil {
		handlers.WriteError(c, err)
		return nil, false
	}
	if changed {
		snap.Update(sess)
		if err := h.store.Save(ctx, snap); err != nil {
			handlers.WriteError(c, err)
			return nil, false
		}
	}
	return snap, true
}

// AddItem 手動新增項目
func (h *Handler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.WriteError(c, common.NewValidationError("invalid request format: "+err.Error()))
		return
	}
	var unit food.Unit
	if req.Unit != "" {
		parsed, ok := food.ParseUnit(req.Unit)
		if !ok {
			handlers.WriteError(c, common.NewValidationError("unit must be g or ml"))
			return
		}
		unit = parsed
	}

	var outcome confirm.AddOutcome
	snap, ok := h.mutate(c, func(s *confirm.Session) (bool, error) {
		outcome = s.AddCustomItem(req.Name, req.Quantity, unit)
		return outcome == confirm.AddApplied, nil
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, AddItemResponse{
		Status:  outcome,
		Message: outcome.Message(),
		Items:   snap.Items,
	})
}

// EditItem 修改項目數量
func (h *Handler) EditItem(c *gin.Context) {
	var req EditItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.WriteError(c, common.NewValidationError("quantity is required"))
		return
	}
	name := c.Param("name")
	snap, ok := h.mutate(c, func(s *confirm.Session) (bool, error) {
		if !s.EditQuantity(name, *req.Quantity) {
			return false, common.ErrItemNotFound
		}
		return true, nil
	})
	if !ok {
		return
	}
	h.respondSession(c, snap)
}

// RemoveItem 刪除項目；項目不存在時不視為錯誤
func (h *Handler) RemoveItem(c *gin.Context) {
	name := c.Param("name")
	snap, ok := h.mutate(c, func(s *confirm.Session) (bool, error) {
		return s.RemoveItem(name), nil
	})
	if !ok {
		return
	}
	h.respondSession(c, snap)
}

// SwapItem 以替代食物取代項目
func (h *Handler) SwapItem(c *gin.Context) {
	var req SwapItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.WriteError(c, common.NewValidationError("name and positive grams are required"))
		return
	}
	name := c.Param("name")
	var outcome confirm.SwapOutcome
	snap, ok := h.mutate(c, func(s *confirm.Session) (bool, error) {
		outcome = s.Swap(name, req.Name, req.Grams)
		if outcome == confirm.SwapMissing {
			return false, common.ErrItemNotFound
		}
		return true, nil
	})
	if !ok {
		return
	}
	common.LogDebug("Item swapped",
		zap.String("session_id", snap.ID),
		zap.String("from", name),
		zap.String("to", req.Name),
		zap.Float64("grams", req.Grams),
		zap.String("outcome", string(outcome)),
	)
	c.JSON(http.StatusOK, SessionResponse{
		SessionID: snap.ID,
		Items:     snap.Items,
		Unfilled:  snap.Session().Unfilled(),
		Notice:    outcome.Message(),
	})
}

func (h *Handler) respondSession(c *gin.Context, snap *session.Snapshot) {
	c.JSON(http.StatusOK, SessionResponse{
		SessionID: snap.ID,
		Items:     snap.Items,
		Unfilled:  snap.Session().Unfilled(),
	})
}

// Finalize 驗證數量、計算營養並結束確認流程
func (h *Handler) Finalize(c *gin.Context) {
	var req FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		handlers.WriteError(c, common.NewValidationError("invalid request format: "+err.Error()))
		return
	}

	id := c.Param("id")
	defer h.lock(id)()

	ctx := nutrition.WithRequestID(c.Request.Context(), handlers.RequestID(c))
	snap, err := h.store.Get(ctx, id)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}

	items, err := snap.Session().Finalize()
	if err != nil {
		handlers.WriteError(c, err)
		return
	}

	resp := FinalizeResponse{SessionID: id, Items: items}
	if h.calculator != nil {
		summary, err := h.calculator.Calculate(ctx, req.UserID, items)
		if err != nil {
			// 保留會話，讓使用者可以重試
			handlers.WriteError(c, common.ErrNutritionService.Wrap(err))
			return
		}
		resp.Nutrition = summary
	}

	if err := h.store.Delete(ctx, id); err != nil && !errors.Is(err, session.ErrNotFound) {
		common.LogWarn("Failed to delete finalized session", zap.String("session_id", id), zap.Error(err))
	}

	if h.history != nil {
		record := &storage.Confirmation{
			SessionID: id,
			UserID:    req.UserID,
			Items:     make([]storage.ConfirmedItem, 0, len(items)),
		}
		for _, item := range items {
			record.Items = append(record.Items, storage.ConfirmedItem{Name: item.Name, Grams: item.Grams})
		}
		if resp.Nutrition != nil {
			record.Nutrition = resp.Nutrition
		}
		if err := h.history.SaveConfirmation(ctx, record); err != nil {
			common.LogError("Failed to record confirmation", zap.String("session_id", id), zap.Error(err))
		} else {
			resp.ConfirmationID = record.ID
		}
	}

	common.LogInfo("確認流程已完成",
		zap.String("session_id", id),
		zap.Int("items", len(items)),
		zap.Bool("nutrition", resp.Nutrition != nil),
		zap.String("request_id", handlers.RequestID(c)),
	)
	c.JSON(http.StatusOK, resp)
}

// Cancel 放棄確認流程
func (h *Handler) Cancel(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// History 查詢已完成的確認紀錄
func (h *Handler) History(c *gin.Context) {
	if h.history == nil {
		handlers.WriteError(c, common.ErrHistoryDisabled)
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			handlers.WriteError(c, common.NewValidationError("limit must be a positive integer"))
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := h.history.ListConfirmations(c.Request.Context(), c.Query("user_id"), limit)
	if err != nil {
		handlers.WriteError(c, common.ErrInternalError.Wrap(err))
		return
	}
	if records == nil {
		records = []*storage.Confirmation{}
	}
	c.JSON(http.StatusOK, gin.H{"confirmations": records})
}
