package food

import (
	"regexp"
	"strings"
)

// portion 預設份量規則
type portion struct {
	pattern  *regexp.Regexp
	quantity float64
	unit     Unit
}

var liquidPattern = regexp.MustCompile(`suco|\bagua\b|leite|\bcafe\b|\bcha\b|refrigerante|\bsoda\b`)

// defaultPortions 依營養形態排序，第一個命中者勝出；與分類規則分開維護
var defaultPortions = []portion{
	{liquidPattern, 200, Milliliter},
	{regexp.MustCompile(`\bovos?\b|omelete`), 50, Gram},
	{regexp.MustCompile(`frango|carne|peixe|porco|bife|tilapia|salmao|atum`), 100, Gram},
	{regexp.MustCompile(`arroz|macarrao|massa|quinoa|cuscuz`), 120, Gram},
	{regexp.MustCompile(`feijao|lentilha|\bgraos?\b|grao de bico|ervilha`), 90, Gram},
	{regexp.MustCompile(`salad|alface|tomate|cenoura|brocolis|rucula|pepino|beterraba`), 50, Gram},
	{regexp.MustCompile(`banana|\bmacas?\b|laranja|fruta|mamao|abacaxi`), 100, Gram},
	{regexp.MustCompile(`batata|mandioca|aipim|macaxeira|inhame`), 100, Gram},
	{regexp.MustCompile(`\bpao\b|\bpaes\b|torrada|biscoito|bolacha`), 50, Gram},
}

const defaultQuantity = 100

// Estimate 根據標準名稱估計預設數量與單位
func Estimate(name string) (float64, Unit) {
	normalized := Normalize(name)
	for _, p := range defaultPortions {
		if p.pattern.MatchString(normalized) {
			return p.quantity, p.unit
		}
	}
	return defaultQuantity, Gram
}

// UnitFor 液體用 ml，其餘用 g
func UnitFor(name string) Unit {
	if IsLiquid(name) {
		return Milliliter
	}
	return Gram
}

// IsLiquid 判斷名稱是否屬於液體
func IsLiquid(name string) bool {
	return liquidPattern.MatchString(Normalize(name))
}

// LiquidDensity 每毫升的克數；未列出的液體為 1.0
func LiquidDensity(name string) float64 {
	normalized := Normalize(name)
	switch {
	case strings.Contains(normalized, "leite"):
		return 1.03
	case strings.Contains(normalized, "suco"):
		return 1.04
	default:
		return 1.0
	}
}
