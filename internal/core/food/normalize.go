package food

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// transform.Chain 帶狀態，每次呼叫建立新的
func accentStripper() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Normalize 轉小寫、去除重音符號、去頭尾空白並合併連續空白
func Normalize(s string) string {
	lower := strings.ToLower(s)
	folded, _, err := transform.String(accentStripper(), lower)
	if err != nil {
		folded = lower
	}
	return strings.Join(strings.Fields(folded), " ")
}
