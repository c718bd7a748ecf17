package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "no fence", in: `  {"title":"Pasta"}  `, want: `{"title":"Pasta"}`},
		{name: "fence only", in: "```\n{\"title\":\"Pasta\"}\n```", want: `{"title":"Pasta"}`},
		{name: "fence with tag", in: "```json\n{\"title\":\"Pasta\"}\n```", want: `{"title":"Pasta"}`},
		{name: "fence with tag glued to body", in: "```json{\"a\":1}```", want: `{"a":1}`},
		{name: "trailing prose after fence", in: "```json\n{}\n```\nEnjoy!", want: `{}`},
		{name: "fenced null", in: "```null```", want: "null"},
		{name: "bare tag", in: "```json", want: ""},
		{name: "empty", in: "   ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, StripFence(tt.in))
		})
	}
}

func TestNormalizeValidRecipe(t *testing.T) {
	raw := "```json\n" + `{
  "title": " Pasta ",
  "description": "Fresh pasta",
  "prep_time": "10 minutes",
  "cook_time": null,
  "servings": 4,
  "ingredients": ["1 cup flour", "2 eggs", "  "],
  "instructions": ["Mix", "Knead"],
  "tips": []
}` + "\n```"

	rec, err := Normalize(raw)
	require.NoError(t, err)
	require.Equal(t, "Pasta", rec.Title)
	require.Equal(t, []string{"1 cup flour", "2 eggs"}, rec.Ingredients)
	require.Equal(t, []string{"Mix", "Knead"}, rec.Instructions)
	require.NotNil(t, rec.PrepTime)
	require.Equal(t, "10 minutes", *rec.PrepTime)
	require.Nil(t, rec.CookTime)
	require.NotNil(t, rec.Servings)
	require.Equal(t, "4", *rec.Servings)
	require.NotNil(t, rec.Tips)
	require.Empty(t, rec.Tips)
	require.Empty(t, rec.Source.Platform)
}

func TestNormalizeCoercesOptionalFields(t *testing.T) {
	str := func(s string) *string { return &s }
	tests := []struct {
		name         string
		raw          string
		instructions []string
		tips         []string
		servings     *string
		prep         *string
		description  string
	}{
		{
			name:         "tips as single string",
			raw:          `{"title":"Pasta","ingredients":["1 cup flour"],"tips":"Serve warm"}`,
			instructions: []string{},
			tips:         []string{"Serve warm"},
		},
		{
			name:         "boolean servings",
			raw:          `{"title":"Pasta","ingredients":["1 cup flour"],"servings":true}`,
			instructions: []string{},
			tips:         []string{},
		},
		{
			name:         "instructions as objects",
			raw:          `{"title":"Pasta","ingredients":["1 cup flour"],"instructions":[{"step":1,"text":"Mix"},{"step":2}]}`,
			instructions: []string{"Mix"},
			tips:         []string{},
		},
		{
			name:         "mixed list items",
			raw:          `{"title":"Pasta","ingredients":["1 cup flour"],"instructions":["Boil", 2, null, ["x"], true],"tips":{"a":"b"}}`,
			instructions: []string{"Boil", "2"},
			tips:         []string{},
		},
		{
			name:         "object times and numeric description",
			raw:          `{"title":"Pasta","ingredients":["1 cup flour"],"prep_time":{"minutes":10},"servings":"2-3","description":42}`,
			instructions: []string{},
			tips:         []string{},
			servings:     str("2-3"),
			description:  "42",
		},
		{
			name:         "instructions as single string",
			raw:          `{"title":"Pasta","ingredients":["1 cup flour"],"instructions":"Mix everything","prep_time":"5 min"}`,
			instructions: []string{"Mix everything"},
			tips:         []string{},
			prep:         str("5 min"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Normalize(tt.raw)
			require.NoError(t, err)
			require.Equal(t, "Pasta", rec.Title)
			require.Equal(t, []string{"1 cup flour"}, rec.Ingredients)
			require.Equal(t, tt.instructions, rec.Instructions)
			require.Equal(t, tt.tips, rec.Tips)
			require.Equal(t, tt.servings, rec.Servings)
			require.Equal(t, tt.prep, rec.PrepTime)
			require.Nil(t, rec.CookTime)
			require.Equal(t, tt.description, rec.Description)
		})
	}
}

func TestNormalizeAbsence(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{name: "literal null", raw: "null", want: ErrNoRecipe},
		{name: "fenced null", raw: "```json\nnull\n```", want: ErrNoRecipe},
		{name: "empty object", raw: "{}", want: ErrNoRecipe},
		{name: "empty text", raw: "", want: ErrNoRecipe},
		{name: "prose", raw: "Sorry, I could not find a recipe here.", want: ErrUnparsable},
		{name: "array", raw: `["flour"]`, want: ErrUnparsable},
		{name: "truncated", raw: `{"title": "Pasta", "ingredients": ["flo`, want: ErrUnparsable},
		{name: "wrong ingredient type", raw: `{"title": "Pasta", "ingredients": "flour"}`, want: ErrUnparsable},
		{name: "empty ingredients", raw: `{"title": "Pasta", "ingredients": []}`, want: ErrInvalidRecipe},
		{name: "blank ingredients", raw: `{"title": "Pasta", "ingredients": ["", " "]}`, want: ErrInvalidRecipe},
		{name: "missing title", raw: `{"ingredients": ["flour"]}`, want: ErrInvalidRecipe},
		{name: "null title", raw: `{"title": null, "ingredients": ["flour"]}`, want: ErrInvalidRecipe},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			require.Error(t, err)
			require.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestNormalizeMissingInstructionsStillValid(t *testing.T) {
	rec, err := Normalize(`{"title": "Salad", "ingredients": ["lettuce"]}`)
	require.NoError(t, err)
	require.NotNil(t, rec.Instructions)
	require.Empty(t, rec.Instructions)
	require.Nil(t, rec.PrepTime)
}
