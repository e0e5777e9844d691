package swaps

import (
	"net/http"
	"strings"

	"meal-engine/internal/api/handlers"
	"meal-engine/internal/core/swap"
	"meal-engine/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SuggestRequest 取得替換建議
type SuggestRequest struct {
	Meal       swap.MealEntry `json:"meal"`
	Category   string         `json:"category" binding:"required"`
	Candidates []string       `json:"candidates,omitempty"`
}

// ApplyRequest 套用替換
type ApplyRequest struct {
	Meal      swap.MealEntry `json:"meal"`
	Category  string         `json:"category" binding:"required"`
	Candidate string         `json:"candidate" binding:"required"`
}

// ApplyResponse 套用後的餐點
type ApplyResponse struct {
	Meal      swap.MealEntry             `json:"meal"`
	Candidate swap.SubstitutionCandidate `json:"candidate"`
}

// Handler 替換建議處理器
type Handler struct {
	planner *swap.Planner
}

// NewHandler 創建處理器
func NewHandler(planner *swap.Planner) *Handler {
	return &Handler{planner: planner}
}

// Register 註冊路由
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/categories", h.Categories)
	rg.POST("/suggestions", h.Suggest)
	rg.POST("/apply", h.Apply)
}

// Categories 列出目錄中的類別
func (h *Handler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.planner.Catalog().Categories})
}

// Suggest 依類別產生等熱量替換建議
func (h *Handler) Suggest(c *gin.Context) {
	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.WriteError(c, common.NewValidationError("category is required"))
		return
	}

	plan, err := h.planner.Suggest(req.Meal, req.Category, req.Candidates)
	if err != nil {
		handlers.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// Apply 以指定候選替換餐點中的食材
func (h *Handler) Apply(c *gin.Context) {
	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.WriteError(c, common.NewValidationError("category and candidate are required"))
		return
	}
	candidate := strings.TrimSpace(req.Candidate)
	if candidate == "" {
		handlers.WriteError(c, common.NewValidationError("candidate is required"))
		return
	}

	plan, err := h.planner.Suggest(req.Meal, req.Category, []string{candidate})
	if err != nil {
		handlers.WriteError(c, err)
		return
	}

	chosen := plan.Candidates[0]
	meal := swap.Apply(req.Meal, plan, chosen)
	common.LogDebug("Swap applied",
		zap.String("meal", req.Meal.Name),
		zap.String("category", plan.Category),
		zap.String("candidate", chosen.Name),
		zap.Float64("grams", chosen.Grams),
		zap.String("request_id", handlers.RequestID(c)),
	)
	c.JSON(http.StatusOK, ApplyResponse{Meal: meal, Candidate: chosen})
}
