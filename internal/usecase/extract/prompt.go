package extract

import (
	"strings"

	"recipe-digest/internal/domain"
)

const promptFormat = `Please extract and structure this into a recipe with the following JSON format:
{
  "title": "Recipe name",
  "description": "Brief description",
  "prep_time": "e.g., 10 minutes (or null if not mentioned)",
  "cook_time": "e.g., 20 minutes (or null if not mentioned)",
  "servings": "e.g., 4 servings (or null if not mentioned)",
  "ingredients": [
    "1 cup flour",
    "2 eggs",
    etc.
  ],
  "instructions": [
    "Step 1: Do this",
    "Step 2: Do that",
    etc.
  ],
  "tips": ["Any helpful tips mentioned (or empty array)"]
}

Important: Look carefully in the comments - creators often post the full recipe as a comment!

If you cannot find a complete recipe (at minimum title and ingredients), return null. Only return the JSON, no other text.`

// BuildPrompt собирает промпт из подписи и первых k комментариев в исходном порядке.
func BuildPrompt(caption string, comments []domain.Comment, k int) string {
	if k >= 0 && len(comments) > k {
		comments = comments[:k]
	}
	var b strings.Builder
	b.WriteString("I have data from a TikTok recipe video. The creator often posts the full recipe in the caption or in the comments. Please extract a complete recipe from this information.\n\n")
	b.WriteString("VIDEO CAPTION:\n")
	b.WriteString(caption)
	b.WriteString("\n\nCOMMENTS (creators often post recipes here):\n")
	for i, c := range comments {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(c.Text)
	}
	b.WriteString("\n\n")
	b.WriteString(promptFormat)
	return b.String()
}
