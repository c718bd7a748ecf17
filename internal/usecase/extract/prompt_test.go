package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"recipe-digest/internal/domain"
)

func TestBuildPromptTruncatesComments(t *testing.T) {
	comments := []domain.Comment{{Text: "first"}, {Text: "second"}, {Text: "third"}}
	prompt := BuildPrompt("Best pasta ever #recipe", comments, 2)

	require.Contains(t, prompt, "VIDEO CAPTION:\nBest pasta ever #recipe")
	require.Contains(t, prompt, "COMMENTS (creators often post recipes here):\n- first\n- second\n")
	require.NotContains(t, prompt, "third")
	require.Contains(t, prompt, "return null")
	require.Less(t, strings.Index(prompt, "- first"), strings.Index(prompt, "- second"))
}

func TestBuildPromptWithoutComments(t *testing.T) {
	prompt := BuildPrompt("caption", nil, 50)
	require.Contains(t, prompt, "COMMENTS (creators often post recipes here):\n\n")
	require.Contains(t, prompt, "Only return the JSON, no other text.")
}
