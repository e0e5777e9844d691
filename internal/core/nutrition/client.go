package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"meal-engine/internal/core/confirm"
	"meal-engine/internal/infrastructure/config"
	"meal-engine/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const analysisType = "nutritional_sum"

// ErrDisabled 未啟用營養計算服務
var ErrDisabled = errors.New("nutrition service disabled")

// Summary 營養加總結果
type Summary struct {
	Kcal     float64 `json:"kcal"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
	FiberG   float64 `json:"fiber_g"`
	SodiumMg float64 `json:"sodium_mg"`
}

type calculateRequest struct {
	DetectedFoods []confirm.OutboundItem `json:"detected_foods"`
	UserID        string                 `json:"user_id,omitempty"`
	AnalysisType  string                 `json:"analysis_type"`
}

type calculateResponse struct {
	Success       bool     `json:"success"`
	Error         string   `json:"error,omitempty"`
	NutritionData *Summary `json:"nutrition_data"`
}

// Client 營養計算服務客戶端
type Client struct {
	cfg    config.NutritionConfig
	client *resty.Client
}

// NewClient 創建營養計算客戶端；未啟用時返回 nil
func NewClient(cfg *config.NutritionConfig) *Client {
	if !cfg.Enabled {
		common.LogInfo("Nutrition service disabled")
		return nil
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey))
	}

	return &Client{cfg: *cfg, client: client}
}

// Enabled nil 客戶端視為停用
func (c *Client) Enabled() bool {
	return c != nil
}

// Calculate 將確認後的清單送出計算營養總和
func (c *Client) Calculate(ctx context.Context, userID string, items []confirm.OutboundItem) (*Summary, error) {
	if c == nil {
		return nil, ErrDisabled
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(calculateRequest{
			DetectedFoods: items,
			UserID:        userID,
			AnalysisType:  analysisType,
		}).
		Post(c.cfg.Path)
	common.LogOutboundCall("nutrition", time.Since(start), err, requestIDFrom(ctx))

	if err != nil {
		return nil, fmt.Errorf("failed to send request to nutrition service: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("nutrition service returned %d: %s", resp.StatusCode(), resp.String())
	}

	var result calculateResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse nutrition response: %w", err)
	}
	if !result.Success || result.NutritionData == nil {
		msg := result.Error
		if msg == "" {
			msg = "no nutrition data"
		}
		return nil, fmt.Errorf("nutrition service rejected the request: %s", msg)
	}

	common.LogDebug("Nutrition calculated",
		zap.Int("items", len(items)),
		zap.Float64("kcal", result.NutritionData.Kcal),
	)
	return result.NutritionData, nil
}

type ctxKey struct{}

// WithRequestID 讓外呼記錄帶上請求 ID
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
