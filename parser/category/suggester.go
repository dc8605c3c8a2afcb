/*
Package category implements the rule-based expense category suggester
from spec.md §4.G step 5, ported in spirit from
original_source/backend/src/services/category_suggester.py: a
keyword-to-category map checked against a lowercased description, with
a default fallback category and a confidence score that distinguishes
a real keyword hit (0.8) from the fallback (0.3).
*/
package category

import "strings"

// DefaultCategory is returned when no keyword matches.
const DefaultCategory = "其他支出"

// keywords mirrors CATEGORY_KEYWORDS verbatim; map iteration order is
// unspecified in Go, so Suggest iterates a fixed slice of categories
// instead (see categoryOrder) to keep matches deterministic.
var keywords = map[string][]string{
	"餐飲費": {
		"餐廳", "食品", "飲料", "咖啡", "麵包", "便當", "小吃", "星巴克", "starbucks",
		"麥當勞", "肯德基", "摩斯", "鼎泰豐", "火鍋", "燒肉", "壽司", "拉麵", "披薩",
		"美食", "早餐", "lunch", "dinner",
	},
	"交通費": {
		"加油", "停車", "高鐵", "台鐵", "捷運", "uber", "計程車", "公車", "中油",
		"台亞", "全國加油", "機票", "航空", "taxi",
	},
	"日用品": {
		"全聯", "家樂福", "好市多", "costco", "大潤發", "屈臣氏", "康是美", "7-11",
		"全家", "萊爾富", "超市", "量販", "日用",
	},
	"網路購物": {
		"蝦皮", "shopee", "pchome", "momo", "博客來", "amazon", "淘寶", "天貓",
		"購物網", "線上購物",
	},
	"娛樂費": {
		"電影", "ktv", "遊戲", "netflix", "spotify", "youtube", "disney", "影城",
		"威秀", "國賓", "秀泰", "演唱會", "展覽",
	},
	"醫療費": {
		"診所", "醫院", "藥局", "藥房", "牙醫", "眼科", "健檢", "醫療", "保健",
	},
	"教育費": {
		"書店", "補習", "課程", "學費", "誠品", "金石堂", "博客來", "線上課程",
		"udemy", "coursera",
	},
}

// categoryOrder fixes the scan order so the first keyword hit across
// categories is reproducible, matching Python 3.7+'s insertion-ordered
// dict iteration in the original.
var categoryOrder = []string{
	"餐飲費", "交通費", "日用品", "網路購物", "娛樂費", "醫療費", "教育費",
}

// Suggestion is the Go rendering of data_import.py's CategorySuggestion.
type Suggestion struct {
	SuggestedAccountName string
	Confidence           float64
	MatchedKeyword       string
}

// Suggester proposes an expense category from a transaction
// description. Build one with New; a zero Suggester has no keywords and
// always returns DefaultCategory. NewWithExtra adds caller-supplied
// keywords on top of the built-in table.
type Suggester struct {
	keywords map[string][]string
	order    []string
}

// New returns a Suggester using only the built-in keyword table.
func New() *Suggester {
	return &Suggester{keywords: keywords, order: categoryOrder}
}

// NewWithExtra returns a Suggester that also matches custom, appending
// to an existing category's list or adding a new category entirely.
func NewWithExtra(custom map[string][]string) *Suggester {
	merged := make(map[string][]string, len(keywords)+len(custom))
	for k, v := range keywords {
		merged[k] = append([]string(nil), v...)
	}
	order := append([]string(nil), categoryOrder...)
	for category, words := range custom {
		if _, ok := merged[category]; ok {
			merged[category] = append(merged[category], words...)
		} else {
			merged[category] = words
			order = append(order, category)
		}
	}
	return &Suggester{keywords: merged, order: order}
}

// Suggest proposes a category for description. An empty description
// gets the default category at zero confidence, distinct from a
// present-but-unmatched description's 0.3.
func (s *Suggester) Suggest(description string) Suggestion {
	if description == "" {
		return Suggestion{SuggestedAccountName: DefaultCategory}
	}
	lower := strings.ToLower(description)
	for _, cat := range s.order {
		for _, kw := range s.keywords[cat] {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return Suggestion{SuggestedAccountName: cat, Confidence: 0.8, MatchedKeyword: kw}
			}
		}
	}
	return Suggestion{SuggestedAccountName: DefaultCategory, Confidence: 0.3}
}

// SuggestBatch suggests a category for each description in order.
func (s *Suggester) SuggestBatch(descriptions []string) []Suggestion {
	out := make([]Suggestion, len(descriptions))
	for i, d := range descriptions {
		out[i] = s.Suggest(d)
	}
	return out
}
