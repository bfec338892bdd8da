package domain

import (
	"fmt"
	"strings"
	"time"
)

// KnowledgeItem is one learned question/answer pair. Items are immutable
// once stored and are retrieved by similarity, never by insertion order.
type KnowledgeItem struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Source    string    `json:"source"` // provider that produced the answer
	Timestamp time.Time `json:"timestamp"`
}

// Document returns the text that is embedded and stored for this item.
func (k KnowledgeItem) Document() string {
	return fmt.Sprintf("Q: %s\nA: %s", k.Question, k.Answer)
}

// FormatContext formats retrieved items into a prompt context block,
// truncating once maxLength is exceeded.
func FormatContext(items []KnowledgeItem, maxLength int) string {
	if len(items) == 0 {
		return ""
	}
	var contextBuilder strings.Builder
	currentLength := 0
	for _, item := range items {
		part := fmt.Sprintf("[Source: %s]\n%s\n\n", item.Source, item.Document())
		if currentLength+len(part) > maxLength {
			break
		}
		contextBuilder.WriteString(part)
		currentLength += len(part)
	}
	return contextBuilder.String()
}
