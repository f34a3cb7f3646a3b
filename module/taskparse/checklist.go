package taskparse

import (
	"regexp"
	"strings"
)

// checklistRe matches one checklist line: dash, space, bracketed state
// char, space, label.
var checklistRe = regexp.MustCompile(`^- \[([ xX])\] (.*)$`)

const fenceMarker = "```"

// Item is one addressable checklist line.
type Item struct {
	// Ordinal counts checklist lines outside fenced code blocks, in
	// document order, starting at zero.
	Ordinal int
	Checked bool
	Label   string
}

// ChecklistItems indexes the checklist lines of content. Lines inside
// triple-backtick fences are never checklist syntax; numbering continues
// across fences over the rest of the document.
func ChecklistItems(content string) []Item {
	var items []Item
	inFence := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(line, fenceMarker) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if m := checklistRe.FindStringSubmatch(line); m != nil {
			items = append(items, Item{
				Ordinal: len(items),
				Checked: m[1] == "x" || m[1] == "X",
				Label:   m[2],
			})
		}
	}
	return items
}

// ToggleChecklist rewrites the checklist line at the given ordinal to the
// desired checked state, leaving every other line (fenced content included)
// byte-for-byte intact. If the ordinal does not address a checklist line the
// input is returned unchanged; callers must treat that as not-found.
func ToggleChecklist(content string, ordinal int, checked bool) string {
	if ordinal < 0 {
		return content
	}
	lines := strings.Split(content, "\n")
	inFence := false
	seen := 0
	for i, raw := range lines {
		line := strings.TrimSuffix(raw, "\r")
		if strings.HasPrefix(line, fenceMarker) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		m := checklistRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if seen == ordinal {
			box := "[ ]"
			if checked {
				box = "[x]"
			}
			rebuilt := "- " + box + " " + m[2]
			if strings.HasSuffix(raw, "\r") {
				rebuilt += "\r"
			}
			lines[i] = rebuilt
			return strings.Join(lines, "\n")
		}
		seen++
	}
	return content
}
