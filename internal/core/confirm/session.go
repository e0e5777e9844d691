package confirm

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"meal-engine/internal/core/food"
	"meal-engine/internal/pkg/common"

	"go.uber.org/zap"
)

// saladPortion 沙拉固定份量（克），不論幾個沙拉類標籤命中
const saladPortion = 50

// ErrQuantityRequired 有項目尚未填寫數量
var ErrQuantityRequired = errors.New("quantity required")

// IncompleteError 結算時仍有數量為 0 的項目
type IncompleteError struct {
	Items []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("fill in the grams/ml of every food: %s", strings.Join(e.Items, ", "))
}

// Is 使 errors.Is(err, ErrQuantityRequired) 成立
func (e *IncompleteError) Is(target error) bool {
	return target == ErrQuantityRequired
}

// AddOutcome 新增自訂項目的結果
type AddOutcome string

const (
	AddApplied          AddOutcome = "applied"
	AddIgnored          AddOutcome = "ignored"
	AddQuantityRequired AddOutcome = "quantity_required"
)

// Message 給使用者看的提示
func (o AddOutcome) Message() string {
	switch o {
	case AddQuantityRequired:
		return "Informe a quantidade (g ou ml) para adicionar o item."
	case AddIgnored:
		return "Temperos e condimentos não precisam ser adicionados."
	default:
		return ""
	}
}

// SwapOutcome 替換項目的結果
type SwapOutcome string

const (
	SwapMissing SwapOutcome = "missing"
	SwapApplied SwapOutcome = "applied"
	// SwapMerged 替代食物已在清單中，原有數量被覆蓋
	SwapMerged SwapOutcome = "merged"
)

// Message 給使用者看的提示
func (o SwapOutcome) Message() string {
	if o == SwapMerged {
		return "O substituto já estava no prato; a quantidade anterior foi substituída."
	}
	return ""
}

// IngestReport 匯入結果統計
type IngestReport struct {
	Accepted int `json:"accepted"`
	Ignored  int `json:"ignored"`
	Salad    int `json:"salad"`
}

// OutboundItem 送往營養計算服務的項目
type OutboundItem struct {
	Name  string  `json:"name"`
	Grams float64 `json:"grams"`
}

// Session 確認流程中的食物清單，以標準名稱為鍵；同名項目覆蓋而不累加
type Session struct {
	items map[string]food.LineItem
}

// NewSession 創建空的確認流程
func NewSession() *Session {
	return &Session{items: make(map[string]food.LineItem)}
}

// Restore 由快照重建確認流程
func Restore(items []food.LineItem) *Session {
	s := NewSession()
	for _, item := range items {
		s.upsert(item.Name, clampQuantity(item.Quantity), item.Unit)
	}
	return s
}

// clampQuantity 負數與非有限值（NaN、±Inf）一律視為 0
func clampQuantity(q float64) float64 {
	if math.IsNaN(q) || math.IsInf(q, 0) || q < 0 {
		return 0
	}
	return q
}

// itemKey 鍵忽略大小寫與重音
func itemKey(name string) string {
	return food.Normalize(name)
}

func (s *Session) upsert(name string, quantity float64, unit food.Unit) {
	s.items[itemKey(name)] = food.LineItem{Name: name, Quantity: quantity, Unit: unit}
}

// Ingest 將外部辨識結果整理為項目；偵測值中的數量不採用
func (s *Session) Ingest(detections []food.RawDetection) IngestReport {
	var report IngestReport
	for _, d := range detections {
		category := food.Classify(d.Name)
		name, ok := category.Resolve()
		if !ok {
			report.Ignored++
			common.LogDebug("Detection ignored",
				zap.String("label", d.Name),
				zap.String("kind", category.Kind().String()),
			)
			continue
		}
		if category.Kind() == food.KindSaladGroup {
			report.Salad++
		}

		quantity, unit := food.Estimate(name)
		s.upsert(name, quantity, unit)
		report.Accepted++
	}

	if report.Salad > 0 {
		s.upsert(food.SaladBucket, saladPortion, food.Gram)
	}
	return report
}

// AddCustomItem 使用者手動新增項目；quantity 為 nil 時不做任何變更
func (s *Session) AddCustomItem(name string, quantity *float64, unit food.Unit) AddOutcome {
	canonical, ok := food.Classify(name).Resolve()
	if !ok {
		return AddIgnored
	}
	if quantity == nil {
		return AddQuantityRequired
	}
	if unit == "" {
		unit = food.UnitFor(canonical)
	}
	s.upsert(canonical, clampQuantity(*quantity), unit)
	return AddApplied
}

// RemoveItem 刪除項目；不存在時回傳 false
func (s *Session) RemoveItem(name string) bool {
	key := itemKey(name)
	if _, ok := s.items[key]; !ok {
		return false
	}
	delete(s.items, key)
	return true
}

// EditQuantity 修改數量，負值與非有限值視為 0
func (s *Session) EditQuantity(name string, quantity float64) bool {
	key := itemKey(name)
	item, ok := s.items[key]
	if !ok {
		return false
	}
	item.Quantity = clampQuantity(quantity)
	s.items[key] = item
	return true
}

// Swap 以替代食物取代指定項目；替代食物已存在於其他列時覆蓋該列並返回 SwapMerged
func (s *Session) Swap(name string, replacement string, grams float64) SwapOutcome {
	key := itemKey(name)
	if _, ok := s.items[key]; !ok {
		return SwapMissing
	}
	replacement = strings.TrimSpace(replacement)
	outcome := SwapApplied
	if newKey := itemKey(replacement); newKey != key {
		if _, exists := s.items[newKey]; exists {
			outcome = SwapMerged
		}
	}
	delete(s.items, key)
	s.upsert(replacement, clampQuantity(grams), food.Gram)
	return outcome
}

// Item 查詢單一項目
func (s *Session) Item(name string) (food.LineItem, bool) {
	item, ok := s.items[itemKey(name)]
	return item, ok
}

// Len 項目數量
func (s *Session) Len() int {
	return len(s.items)
}

// Items 依名稱排序的項目快照
func (s *Session) Items() []food.LineItem {
	items := make([]food.LineItem, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return itemKey(items[i].Name) < itemKey(items[j].Name)
	})
	return items
}

// Unfilled 數量仍為 0 的項目名稱
func (s *Session) Unfilled() []string {
	var names []string
	for _, item := range s.Items() {
		if !(item.Quantity > 0) {
			names = append(names, item.Name)
		}
	}
	return names
}

// Finalize 驗證所有數量並換算為克
func (s *Session) Finalize() ([]OutboundItem, error) {
	if unfilled := s.Unfilled(); len(unfilled) > 0 {
		return nil, &IncompleteError{Items: unfilled}
	}

	items := s.Items()
	out := make([]OutboundItem, 0, len(items))
	for _, item := range items {
		out = append(out, OutboundItem{
			Name:  outboundName(item.Name),
			Grams: toGrams(item),
		})
	}
	return out, nil
}

// outboundName 計算服務只認得小寫的沙拉名稱
func outboundName(name string) string {
	if name == food.SaladBucket {
		return strings.ToLower(name)
	}
	return name
}

func toGrams(item food.LineItem) float64 {
	if item.Unit == food.Milliliter {
		return math.Round(item.Quantity * food.LiquidDensity(item.Name))
	}
	return item.Quantity
}
