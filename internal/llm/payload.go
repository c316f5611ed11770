package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoPayload is returned when no JSON object can be recovered from a
// reply.
var ErrNoPayload = errors.New("no JSON payload in response")

// ExtractJSON recovers the JSON object embedded in a model reply. Markdown
// fences are stripped; a reply cut off by the token limit is repaired by
// closing an open string and then any open brackets and braces.
func ExtractJSON(text string) (map[string]any, error) {
	body := stripFences(text)

	var out map[string]any
	if err := json.Unmarshal([]byte(body), &out); err == nil && out != nil {
		return out, nil
	}
	if repaired := repairTruncated(body); repaired != "" {
		if err := json.Unmarshal([]byte(repaired), &out); err == nil && out != nil {
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w (%d chars)", ErrNoPayload, len(text))
}

// stripFences returns the body between the first opening fence and the last
// closing one. The payload itself may contain nested fenced blocks.
func stripFences(text string) string {
	for _, open := range []string{"```json", "```"} {
		start := strings.Index(text, open)
		if start < 0 {
			continue
		}
		start += len(open)
		if end := strings.LastIndex(text, "```"); end > start {
			return strings.TrimSpace(text[start:end])
		}
		return strings.TrimSpace(text[start:])
	}
	return strings.TrimSpace(text)
}

func repairTruncated(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") {
		return ""
	}

	inString := false
	var closers []byte
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch ch {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			closers = append(closers, '}')
		case '[':
			closers = append(closers, ']')
		case '}', ']':
			if n := len(closers); n > 0 {
				closers = closers[:n-1]
			}
		}
	}

	if inString {
		text += `"`
	} else {
		text = strings.TrimRight(text, ", \t\r\n")
	}
	var b strings.Builder
	b.WriteString(text)
	for i := len(closers) - 1; i >= 0; i-- {
		b.WriteByte(closers[i])
	}
	return b.String()
}
