package graph

import (
	"fmt"
	"strings"
)

// Mermaid renders g as a left-to-right Mermaid flowchart. Concepts listed in
// completed are marked [done] and current is marked [here].
func (g *Graph) Mermaid(completed []string, current string) string {
	done := make(map[string]bool, len(completed))
	for _, id := range completed {
		done[id] = true
	}

	doc := g.Document()
	var b strings.Builder
	b.WriteString("graph LR\n")
	for _, c := range doc.Nodes {
		label := mermaidLabel(c.Name)
		if done[c.ID] {
			label += " [done]"
		}
		if c.ID == current {
			label += " [here]"
		}
		fmt.Fprintf(&b, "    %s[\"%s\"]\n", c.ID, label)
	}
	for _, r := range doc.Edges {
		fmt.Fprintf(&b, "    %s -->|%s| %s\n", r.Source, r.Type, r.Target)
	}
	return strings.TrimRight(b.String(), "\n")
}

// mermaidLabel strips characters that terminate a quoted node label.
func mermaidLabel(s string) string {
	return strings.NewReplacer(`"`, "'", "\n", " ").Replace(s)
}
