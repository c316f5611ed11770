// Package chunker splits markdown analysis text into sections and fits them
// into a prompt budget without cutting a section mid-line.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// DefaultBudget is the summary size, in bytes, handed to extraction prompts.
const DefaultBudget = 24000

// Section is a heading-delimited block with its position in the source text.
type Section struct {
	Text      string
	StartLine int
	EndLine   int
}

// Split breaks text into sections on heading lines and on runs of two or
// more blank lines. Sections are trimmed; blank sections are dropped.
func Split(text string) []Section {
	lines := strings.Split(text, "\n")
	var sections []Section
	var current []string
	startLine := 1

	flush := func(endLine int) {
		t := strings.TrimSpace(strings.Join(current, "\n"))
		if t != "" {
			sections = append(sections, Section{Text: t, StartLine: startLine, EndLine: endLine})
		}
		current = nil
		startLine = endLine + 1
	}

	blanks := 0
	for i, line := range lines {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			blanks++
			current = append(current, line)
			continue
		}
		if strings.HasPrefix(trimmed, "#") || blanks >= 2 {
			flush(lineNum - 1)
		}
		blanks = 0
		current = append(current, line)
	}
	flush(len(lines))

	return sections
}

// Fit returns the longest prefix of whole sections of text, joined by blank
// lines, that fits in budget bytes, and the number of sections left out.
// When the first section alone is too large it is cut on a line boundary,
// or inside the line (on a rune boundary) for a single oversized line.
// A budget <= 0 means no limit.
func Fit(text string, budget int) (string, int) {
	text = strings.TrimSpace(text)
	if budget <= 0 || len(text) <= budget {
		return text, 0
	}

	sections := Split(text)
	var b strings.Builder
	kept := 0
	for _, s := range sections {
		need := len(s.Text)
		if kept > 0 {
			need += 2
		}
		if b.Len()+need > budget {
			break
		}
		if kept > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s.Text)
		kept++
	}
	if kept == 0 && len(sections) > 0 {
		b.WriteString(cutLines(sections[0].Text, budget))
		kept = 1
	}
	return b.String(), len(sections) - kept
}

// cutLines keeps whole lines of s up to budget bytes.
func cutLines(s string, budget int) string {
	var b strings.Builder
	for i, line := range strings.Split(s, "\n") {
		need := len(line)
		if i > 0 {
			need++
		}
		if b.Len()+need > budget {
			if i == 0 {
				return cutRunes(line, budget)
			}
			break
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String()
}

func cutRunes(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	for budget > 0 && !utf8.RuneStart(s[budget]) {
		budget--
	}
	return s[:budget]
}
