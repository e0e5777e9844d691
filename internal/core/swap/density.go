package swap

import (
	"strings"

	"meal-engine/internal/core/food"
)

// DefaultDensity 未命中時的 kcal/g
const DefaultDensity = 1.0

// densityEntry 子字串 → 每克熱量
type densityEntry struct {
	pattern     string
	kcalPerGram float64
}

// calorieDensities 順序即優先順序（"batata doce" 需排在 "batata" 之前，"macarrao" 在 "maca" 之前）
var calorieDensities = []densityEntry{
	{"arroz", 1.3},
	{"frango", 1.1},
	{"peixe", 1.0},
	{"atum", 1.32},
	{"ovo", 1.56},
	{"aveia", 3.89},
	{"pao", 2.6},
	{"banana", 0.89},
	{"macarrao", 1.58},
	{"maca", 0.52},
	{"iogurte", 0.63},
	{"leite", 0.64},
	{"queijo", 4.0},
	{"batata doce", 0.86},
	{"batata", 0.77},
	{"salad", 0.25},
	{"legume", 0.25},
	{"azeite", 8.84},
	{"molho", 0.29},
}

// DensityOf 以子字串比對每克熱量，未命中返回 1.0
func DensityOf(name string) float64 {
	normalized := food.Normalize(name)
	for _, e := range calorieDensities {
		if strings.Contains(normalized, e.pattern) {
			return e.kcalPerGram
		}
	}
	return DefaultDensity
}
