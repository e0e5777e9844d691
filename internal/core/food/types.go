package food

import "strings"

// Unit 計量單位
type Unit string

const (
	Gram       Unit = "g"
	Milliliter Unit = "ml"
)

// ParseUnit 解析單位字串，接受 g / ml 及常見寫法
func ParseUnit(s string) (Unit, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "g", "gr", "grama", "gramas", "gram", "grams":
		return Gram, true
	case "ml", "mililitro", "mililitros", "milliliter", "milliliters":
		return Milliliter, true
	default:
		return "", false
	}
}

// RawDetection 外部影像辨識服務回傳的單筆標籤，數量不可信
type RawDetection struct {
	Name     string   `json:"name"`
	Quantity *float64 `json:"quantity,omitempty"`
}

// LineItem 已確認的食物項目
type LineItem struct {
	Name     string  `json:"name" msgpack:"name"`
	Quantity float64 `json:"quantity" msgpack:"quantity"`
	Unit     Unit    `json:"unit" msgpack:"unit"`
}

// Kind 分類結果的種類
type Kind int

const (
	KindIgnored Kind = iota
	KindSaladGroup
	KindCanonical
	KindPassthrough
)

func (k Kind) String() string {
	switch k {
	case KindIgnored:
		return "ignored"
	case KindSaladGroup:
		return "salad_group"
	case KindCanonical:
		return "canonical"
	case KindPassthrough:
		return "passthrough"
	default:
		return "unknown"
	}
}

// SaladBucket 所有沙拉類偵測合併後的名稱
const SaladBucket = "Salad"

// Category 分類結果（tagged variant），只能透過建構函式產生
type Category struct {
	kind Kind
	name string
}

// Ignored 調味料等雜訊
func Ignored() Category { return Category{kind: KindIgnored} }

// SaladGroup 沙拉類
func SaladGroup() Category { return Category{kind: KindSaladGroup, name: SaladBucket} }

// Canonical 命中標準化規則
func Canonical(name string) Category { return Category{kind: KindCanonical, name: name} }

// Passthrough 未命中任何規則，保留原始文字
func Passthrough(name string) Category { return Category{kind: KindPassthrough, name: name} }

// Kind 返回分類種類
func (c Category) Kind() Kind { return c.kind }

// Name 返回標準名稱；Ignored 為空字串
func (c Category) Name() string { return c.name }

// Resolve 返回可作為 LineItem 的名稱；Ignored 或空名稱返回 false
func (c Category) Resolve() (string, bool) {
	if c.kind == KindIgnored || c.name == "" {
		return "", false
	}
	return c.name, true
}
