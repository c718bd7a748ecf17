package telegram

import "strings"

// MessageLimit задаёт максимальную длину сообщения Telegram в символах.
const MessageLimit = 4096

// SplitMessage режет текст на части не длиннее limit символов, предпочитая
// границы строк. limit <= 0 означает лимит Telegram.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MessageLimit
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	runes := []rune(trimmed)
	if len(runes) <= limit {
		return []string{trimmed}
	}

	var parts []string
	appendChunk := func(r []rune) {
		if chunk := strings.Trim(string(r), "\n"); chunk != "" {
			parts = append(parts, chunk)
		}
	}

	start := 0
	for len(runes)-start > limit {
		end := start + limit
		split := lastNewline(runes, start, end)
		if split <= start {
			split = end
		}
		appendChunk(runes[start:split])
		start = split
		for start < len(runes) && runes[start] == '\n' {
			start++
		}
	}
	appendChunk(runes[start:])
	return parts
}

// lastNewline возвращает позицию сразу после последнего '\n' в runes[start:end] или -1.
func lastNewline(runes []rune, start, end int) int {
	for i := end; i > start; i-- {
		if runes[i-1] == '\n' {
			return i
		}
	}
	return -1
}
