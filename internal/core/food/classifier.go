package food

import (
	"regexp"
	"strings"
)

// rule 分類規則；按順序比對，先命中者勝出
type rule struct {
	kind      Kind
	pattern   *regexp.Regexp
	canonical string
}

var (
	// 調味料：整字比對，避免 "sal" 誤傷 "salada"、"salmao"
	ignorePattern = regexp.MustCompile(`\b(sal|pimenta|tempero|ervas?|oregano|alho|cebolinha|salsa|salsinha|vinagre|vinagrete|molho|azeite)s?\b`)

	saladPattern = regexp.MustCompile(`salad|alface|tomate|rucula|pepino|cenoura|agriao|mix de folhas|folhas|verdura|legume`)

	// 烹調方式修飾詞，比對標準化規則前移除
	qualifierPattern = regexp.MustCompile(`\b(grelhad[oa]s?|grellhad[oa]s?|assad[oa]s?|cozid[oa]s?|ensopad[oa]s?|frit[oa]s?|de panela|caseir[oa]s?)\b`)
)

// classificationRules 優先順序：忽略 > 沙拉 > 標準化規則；都不命中則 passthrough
var classificationRules = []rule{
	{KindIgnored, ignorePattern, ""},
	{KindSaladGroup, saladPattern, SaladBucket},
	{KindCanonical, regexp.MustCompile(`frango|galinha`), "Frango"},
	{KindCanonical, regexp.MustCompile(`porco|suina|lombo|pernil|bisteca`), "Carne suína"},
	{KindCanonical, regexp.MustCompile(`bife|carne|contra-?file|alcatra|picanha|patinho|maminha`), "Carne bovina"},
	{KindCanonical, regexp.MustCompile(`peixe|tilapia|salmao|merluza|bacalhau`), "Peixe"},
	{KindCanonical, regexp.MustCompile(`arroz integral`), "Arroz integral"},
	{KindCanonical, regexp.MustCompile(`arroz`), "Arroz branco"},
	{KindCanonical, regexp.MustCompile(`feijao`), "Feijão"},
	{KindCanonical, regexp.MustCompile(`batatas? fritas?`), "Batata frita"},
	{KindCanonical, regexp.MustCompile(`batata|mandioca|aipim|macaxeira|inhame`), "Batata"},
	{KindCanonical, regexp.MustCompile(`\bovos?\b|omelete`), "Ovo"},
	{KindCanonical, regexp.MustCompile(`\bpao\b|\bpaes\b|torrada|\bpita\b|\bwrap\b`), "Pão"},
}

// StripQualifiers 移除烹調方式修飾詞（grelhado、assado、frito…）
func StripQualifiers(normalized string) string {
	return strings.Join(strings.Fields(qualifierPattern.ReplaceAllString(normalized, " ")), " ")
}

// Classify 將原始標籤分類；不會失敗
func Classify(label string) Category {
	normalized := Normalize(label)
	stripped := StripQualifiers(normalized)

	for _, r := range classificationRules {
		switch r.kind {
		case KindIgnored:
			if r.pattern.MatchString(normalized) {
				return Ignored()
			}
		case KindSaladGroup:
			if r.pattern.MatchString(normalized) {
				return SaladGroup()
			}
		case KindCanonical:
			// "batata frita" 去掉 "frita" 後仍需保留獨立的標準名稱
			if r.pattern.MatchString(stripped) || r.pattern.MatchString(normalized) {
				return Canonical(r.canonical)
			}
		}
	}

	return Passthrough(strings.TrimSpace(label))
}
