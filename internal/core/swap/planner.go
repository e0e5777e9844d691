package swap

import (
	"errors"
	"math"
	"strings"

	"meal-engine/internal/core/food"
	"meal-engine/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	// MinGrams / MaxGrams 建議份量的上下限
	MinGrams = 30
	MaxGrams = 400

	// 餐點沒有可辨識的食材時，以餐點熱量的 35% 估算
	mealShareFallback = 0.35
	// 連餐點熱量都沒有時的假設值
	flatKcalFallback = 300
)

// ErrUnknownCategory 目錄中沒有此類別
var ErrUnknownCategory = errors.New("unknown swap category")

// MealEntry 餐點
type MealEntry struct {
	Name            string          `json:"name"`
	CaloriesKcal    *float64        `json:"calories_kcal,omitempty"`
	Ingredients     []food.LineItem `json:"ingredients,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	HomemadeMeasure string          `json:"homemade_measure,omitempty"`
}

// SubstitutionCandidate 替代建議
type SubstitutionCandidate struct {
	Name      string  `json:"name"`
	Grams     float64 `json:"grams"`
	DeltaKcal float64 `json:"delta_kcal"`
}

// Plan 一次替換的計算結果
type Plan struct {
	Category    string                  `json:"category"`
	Slot        int                     `json:"slot"`
	Current     *food.LineItem          `json:"current,omitempty"`
	CurrentKcal float64                 `json:"current_kcal"`
	Candidates  []SubstitutionCandidate `json:"candidates"`
}

// HasSlot 是否找到要被替換的食材
func (p Plan) HasSlot() bool {
	return p.Slot >= 0
}

// Planner 以目錄為基礎產生替換建議
type Planner struct {
	catalog *Catalog
}

// NewPlanner 創建替換規劃器
func NewPlanner(catalog *Catalog) *Planner {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Planner{catalog: catalog}
}

// Catalog 返回使用中的目錄
func (p *Planner) Catalog() *Catalog {
	return p.catalog
}

// Suggest 依類別在目錄中的候選清單產生建議；candidates 非空時取代目錄清單
func (p *Planner) Suggest(meal MealEntry, categoryID string, candidates []string) (Plan, error) {
	category, ok := p.catalog.Category(categoryID)
	if !ok {
		return Plan{}, ErrUnknownCategory
	}
	if len(candidates) == 0 {
		candidates = category.Candidates
	}

	plan := PlanFor(meal, category, candidates)
	common.LogDebug("Swap plan computed",
		zap.String("category", category.ID),
		zap.Int("slot", plan.Slot),
		zap.Float64("current_kcal", plan.CurrentKcal),
		zap.Int("candidates", len(plan.Candidates)),
	)
	return plan, nil
}

// FindSlot 第一個屬於該類別的食材索引，沒有時返回 -1
func FindSlot(meal MealEntry, category Category) int {
	for i, ing := range meal.Ingredients {
		if category.Matches(ing.Name) {
			return i
		}
	}
	return -1
}

// CurrentKcal 目前食材的熱量；無法判斷時以餐點熱量或固定值估算
func CurrentKcal(meal MealEntry, slot int) float64 {
	if slot >= 0 && slot < len(meal.Ingredients) {
		ing := meal.Ingredients[slot]
		if ing.Quantity > 0 {
			return ing.Quantity * DensityOf(ing.Name)
		}
	}
	if meal.CaloriesKcal != nil && *meal.CaloriesKcal > 0 {
		return mealShareFallback * *meal.CaloriesKcal
	}
	return flatKcalFallback
}

// TargetGrams 維持熱量所需的克數，取最接近的 5 的倍數並限制在 [30, 400]
func TargetGrams(currentKcal, density float64) float64 {
	if density <= 0 {
		density = DefaultDensity
	}
	grams := roundToNearest5(currentKcal / density)
	return math.Min(MaxGrams, math.Max(MinGrams, grams))
}

func roundToNearest5(v float64) float64 {
	return math.Round(v/5) * 5
}

// PlanFor 依候選清單順序計算建議，不重新排序
func PlanFor(meal MealEntry, category Category, candidates []string) Plan {
	slot := FindSlot(meal, category)
	current := CurrentKcal(meal, slot)

	plan := Plan{
		Category:    category.ID,
		Slot:        slot,
		CurrentKcal: current,
		Candidates:  make([]SubstitutionCandidate, 0, len(candidates)),
	}
	if slot >= 0 {
		ing := meal.Ingredients[slot]
		plan.Current = &ing
	}

	for _, name := range candidates {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		density := DensityOf(name)
		grams := TargetGrams(current, density)
		plan.Candidates = append(plan.Candidates, SubstitutionCandidate{
			Name:      name,
			Grams:     grams,
			DeltaKcal: math.Round(grams*density - current),
		})
	}
	return plan
}

// Apply 套用替換，返回新的餐點；calories_kcal 維持原值，不依新組成重算
func Apply(meal MealEntry, plan Plan, candidate SubstitutionCandidate) MealEntry {
	out := meal
	out.Ingredients = append([]food.LineItem(nil), meal.Ingredients...)

	replacement := food.LineItem{Name: candidate.Name, Quantity: candidate.Grams, Unit: food.Gram}
	if plan.HasSlot() && plan.Slot < len(out.Ingredients) {
		out.Ingredients[plan.Slot] = replacement
	} else {
		out.Ingredients = append(out.Ingredients, replacement)
	}

	if meal.CaloriesKcal != nil {
		kcal := *meal.CaloriesKcal
		out.CaloriesKcal = &kcal
	} else {
		kcal := math.Round(plan.CurrentKcal)
		out.CaloriesKcal = &kcal
	}
	return out
}
