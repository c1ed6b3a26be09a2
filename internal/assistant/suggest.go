package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

const maxSuggestions = 3

const suggestPrompt = `You are a family organization assistant. Given this calendar event, suggest 0-3 short preparation tasks that someone might need to do beforehand.

Event: %q

Rules:
- Only suggest tasks if preparation is actually needed
- Each task should be a short action (3-8 words)
- Reply with ONLY a JSON array of strings, nothing else
- If no preparation needed, reply with []

Examples:
- "Sarah's Birthday Party" -> ["Buy birthday card for Sarah", "Buy present for Sarah"]
- "Team standup" -> []
- "Dentist appointment" -> ["Prepare list of dental concerns"]`

// Suggester proposes preparation tasks for calendar events.
type Suggester struct {
	gen    Generator
	logger *slog.Logger
}

func NewSuggester(gen Generator, logger *slog.Logger) *Suggester {
	return &Suggester{gen: gen, logger: logger}
}

// SuggestTasks returns at most three tasks for the event. It falls back to
// KeywordTasks when the generator is missing, fails or returns unusable text.
func (s *Suggester) SuggestTasks(ctx context.Context, summary string) []string {
	if s.gen != nil {
		out, err := s.gen.Generate(ctx, fmt.Sprintf(suggestPrompt, summary))
		if err != nil {
			s.logger.Warn("task suggestion failed, using keywords", "error", err)
		} else if tasks, ok := ParseSuggestions(out); ok {
			return tasks
		}
	}
	return KeywordTasks(summary)
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// ParseSuggestions extracts a JSON string array from model output. Reasoning
// blocks and markdown fences around the array are ignored.
func ParseSuggestions(raw string) ([]string, bool) {
	cleaned := strings.TrimSpace(thinkBlock.ReplaceAllString(raw, ""))
	if strings.HasPrefix(cleaned, "```") {
		if i := strings.Index(cleaned, "\n"); i >= 0 {
			cleaned = cleaned[i+1:]
		}
		if i := strings.LastIndex(cleaned, "```"); i >= 0 {
			cleaned = cleaned[:i]
		}
		cleaned = strings.TrimSpace(cleaned)
	}

	var items []any
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, false
	}

	tasks := make([]string, 0, maxSuggestions)
	for _, item := range items {
		if item == nil {
			continue
		}
		t := strings.TrimSpace(fmt.Sprint(item))
		if t == "" {
			continue
		}
		tasks = append(tasks, t)
		if len(tasks) == maxSuggestions {
			break
		}
	}
	return tasks, true
}

// KeywordTasks suggests tasks from words in the event summary.
func KeywordTasks(summary string) []string {
	lower := strings.ToLower(summary)

	if strings.Contains(lower, "birthday") {
		if i := strings.Index(summary, "'s"); i >= 0 {
			if name := strings.TrimSpace(summary[:i]); name != "" {
				return []string{"Buy birthday card for " + name, "Buy present for " + name}
			}
		}
		return []string{"Buy birthday card", "Buy present"}
	}

	for _, w := range []string{"dentist", "doctor", "gp", "hospital"} {
		if strings.Contains(lower, w) {
			return []string{"Prepare any paperwork or questions"}
		}
	}
	for _, w := range []string{"interview", "presentation"} {
		if strings.Contains(lower, w) {
			return []string{"Prepare notes and materials"}
		}
	}
	return nil
}
