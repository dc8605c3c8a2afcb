package category_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pennywise/ledger/parser/category"
)

func TestSuggestMatchesKeyword(t *testing.T) {
	s := category.New()
	suggestion := s.Suggest("星巴克咖啡")
	assert.Equal(t, "餐飲費", suggestion.SuggestedAccountName)
	assert.Equal(t, 0.8, suggestion.Confidence)
	assert.NotEmpty(t, suggestion.MatchedKeyword)
}

func TestSuggestFallsBackToDefaultCategory(t *testing.T) {
	s := category.New()
	suggestion := s.Suggest("某個完全無法辨識的描述")
	assert.Equal(t, category.DefaultCategory, suggestion.SuggestedAccountName)
	assert.Equal(t, 0.3, suggestion.Confidence)
	assert.Empty(t, suggestion.MatchedKeyword)
}

func TestSuggestEmptyDescriptionIsZeroConfidence(t *testing.T) {
	s := category.New()
	suggestion := s.Suggest("")
	assert.Equal(t, category.DefaultCategory, suggestion.SuggestedAccountName)
	assert.Equal(t, 0.0, suggestion.Confidence)
}

func TestNewWithExtraAppendsToExistingCategory(t *testing.T) {
	s := category.NewWithExtra(map[string][]string{"餐飲費": {"丹丹漢堡"}})
	suggestion := s.Suggest("丹丹漢堡超值餐")
	assert.Equal(t, "餐飲費", suggestion.SuggestedAccountName)
	assert.Equal(t, "丹丹漢堡", suggestion.MatchedKeyword)
}

func TestNewWithExtraAddsNewCategory(t *testing.T) {
	s := category.NewWithExtra(map[string][]string{"寵物費": {"寵物用品", "動物醫院"}})
	suggestion := s.Suggest("寵物用品特賣")
	assert.Equal(t, "寵物費", suggestion.SuggestedAccountName)
}

func TestSuggestBatch(t *testing.T) {
	s := category.New()
	out := s.SuggestBatch([]string{"星巴克", "", "未知商店"})
	assert.Len(t, out, 3)
	assert.Equal(t, "餐飲費", out[0].SuggestedAccountName)
	assert.Equal(t, category.DefaultCategory, out[1].SuggestedAccountName)
	assert.Equal(t, category.DefaultCategory, out[2].SuggestedAccountName)
}
