package shopping

import (
	"testing"

	"meal-calendar/internal/calday"
	"meal-calendar/internal/menu"
	"meal-calendar/internal/recipe"

	"github.com/stretchr/testify/assert"
)

func TestBuild(t *testing.T) {
	curry := &recipe.Recipe{
		Name: "カレー",
		Ingredients: []recipe.Ingredient{
			{Name: "玉ねぎ", Quantity: "2個"},
			{Name: "にんじん", Quantity: "1本"},
		},
	}
	nikujaga := &recipe.Recipe{
		Name: "肉じゃが",
		Ingredients: []recipe.Ingredient{
			{Name: " 玉ねぎ ", Quantity: "1個"},
			{Name: "醤油"},
		},
	}

	list := Build([]menu.Entry{
		{Date: calday.MustParse("2024-03-15"), Recipe: curry},
		{Date: calday.MustParse("2024-03-16"), Memo: "外食"},
		{Date: calday.MustParse("2024-03-17"), Recipe: nikujaga},
		{Date: calday.MustParse("2024-03-18"), Recipe: curry},
	})

	assert.Equal(t, []Item{
		{Name: "玉ねぎ", Quantity: "2個 + 1個 + 2個", Quantities: []string{"2個", "1個", "2個"}, Recipes: []string{"カレー", "肉じゃが"}},
		{Name: "にんじん", Quantity: "1本 + 1本", Quantities: []string{"1本", "1本"}, Recipes: []string{"カレー"}},
		{Name: "醤油", Recipes: []string{"肉じゃが"}},
	}, list.Items)

	assert.Equal(t, []string{"玉ねぎ 2個 + 1個 + 2個", "にんじん 1本 + 1本", "醤油"}, list.Lines())
}

func TestBuild_Empty(t *testing.T) {
	list := Build([]menu.Entry{{Memo: "未定"}})
	assert.Empty(t, list.Items)
	assert.Empty(t, list.Lines())
}
