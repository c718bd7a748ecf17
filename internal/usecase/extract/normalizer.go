package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"recipe-digest/internal/domain"
)

var (
	// ErrNoRecipe возвращается, когда модель явно сообщила, что рецепта нет.
	ErrNoRecipe = errors.New("модель не нашла рецепт")
	// ErrUnparsable возвращается, когда ответ модели не удалось разобрать как объект рецепта.
	ErrUnparsable = errors.New("ответ модели не разобран")
	// ErrInvalidRecipe возвращается для рецепта без названия или без ингредиентов.
	ErrInvalidRecipe = errors.New("рецепт без названия или ингредиентов")
)

const fence = "```"

// recipeSchemaJSON строг только к названию и ингредиентам. Необязательные поля
// приводятся к нужной форме при разборе, а не отклоняются.
const recipeSchemaJSON = `{
  "type": "object",
  "properties": {
    "title": {"type": ["string", "null"]},
    "ingredients": {"type": ["array", "null"], "items": {"type": ["string", "null"]}}
  }
}`

var recipeSchema = mustSchema(recipeSchemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("recipe schema: %v", err))
	}
	return schema
}

type rawRecipe struct {
	Title        *string         `json:"title"`
	Description  json.RawMessage `json:"description"`
	PrepTime     json.RawMessage `json:"prep_time"`
	CookTime     json.RawMessage `json:"cook_time"`
	Servings     json.RawMessage `json:"servings"`
	Ingredients  []*string       `json:"ingredients"`
	Instructions json.RawMessage `json:"instructions"`
	Tips         json.RawMessage `json:"tips"`
}

// Normalize превращает сырой ответ модели в рецепт без источника.
// Любая ненулевая ошибка означает отсутствие рецепта.
func Normalize(raw string) (domain.RecipeRecord, error) {
	text := StripFence(raw)
	if text == "" || text == "null" {
		return domain.RecipeRecord{}, ErrNoRecipe
	}

	var top any
	if err := json.Unmarshal([]byte(text), &top); err != nil {
		return domain.RecipeRecord{}, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	switch doc := top.(type) {
	case nil:
		return domain.RecipeRecord{}, ErrNoRecipe
	case map[string]any:
		if len(doc) == 0 {
			return domain.RecipeRecord{}, ErrNoRecipe
		}
	default:
		return domain.RecipeRecord{}, fmt.Errorf("%w: ожидали объект, получили %T", ErrUnparsable, top)
	}

	result, err := recipeSchema.Validate(gojsonschema.NewStringLoader(text))
	if err != nil {
		return domain.RecipeRecord{}, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	if !result.Valid() {
		return domain.RecipeRecord{}, fmt.Errorf("%w: %s", ErrUnparsable, result.Errors()[0].String())
	}

	var r rawRecipe
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return domain.RecipeRecord{}, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	rec := domain.RecipeRecord{
		Title:        strings.TrimSpace(deref(r.Title)),
		Description:  deref(opaqueText(r.Description)),
		PrepTime:     opaqueText(r.PrepTime),
		CookTime:     opaqueText(r.CookTime),
		Servings:     opaqueText(r.Servings),
		Ingredients:  compact(r.Ingredients),
		Instructions: looseList(r.Instructions),
		Tips:         looseList(r.Tips),
	}
	if !rec.Valid() {
		return domain.RecipeRecord{}, ErrInvalidRecipe
	}
	return rec, nil
}

// StripFence убирает обрамление ``` и тег языка сразу после открывающего забора.
func StripFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, fence) {
		return strings.TrimSpace(strings.TrimSuffix(text, fence))
	}
	text = stripLangTag(strings.TrimPrefix(text, fence))
	if idx := strings.LastIndex(text, fence); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// stripLangTag снимает токен вида json, если за ним следует пробел или начало документа.
func stripLangTag(text string) string {
	i := 0
	for i < len(text) && isTagByte(text[i]) {
		i++
	}
	if i == 0 {
		return text
	}
	if i == len(text) {
		return ""
	}
	switch text[i] {
	case '\n', '\r', ' ', '\t', '{', '[':
		return text[i:]
	}
	return text
}

func isTagByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '_' || b == '+' || b == '-' || b == '.':
		return true
	}
	return false
}

// opaqueText сохраняет строку как есть, а число как его литерал. null, пустая
// строка и значения других типов дают nil.
func opaqueText(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	var s string
	switch {
	case raw[0] == '"':
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
	case raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'):
		s = string(raw)
	default:
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// itemTextKeys перечисляет поля, из которых берётся текст шага, если модель
// вернула шаг объектом.
var itemTextKeys = []string{"text", "instruction", "step_text", "description", "tip"}

// looseList разбирает список строк, который модель могла вернуть не в той форме:
// одна строка становится списком из одного элемента, числа сохраняются литералом,
// у объектов берётся текстовое поле, остальное отбрасывается.
func looseList(raw json.RawMessage) []string {
	out := make([]string, 0)
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return out
	}
	if raw[0] != '[' {
		if s := opaqueText(raw); s != nil && raw[0] == '"' {
			out = append(out, *s)
		}
		return out
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '{' {
			if s := objectText(item); s != "" {
				out = append(out, s)
			}
			continue
		}
		if s := opaqueText(item); s != nil {
			out = append(out, *s)
		}
	}
	return out
}

func objectText(raw json.RawMessage) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ""
	}
	for _, key := range itemTextKeys {
		if v, ok := fields[key]; ok && len(v) > 0 && v[0] == '"' {
			if s := opaqueText(v); s != nil {
				return *s
			}
		}
	}
	return ""
}

func compact(items []*string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if s := strings.TrimSpace(*item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
