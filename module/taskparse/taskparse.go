// Package taskparse holds the pure text transforms behind task extraction:
// task-flag detection and stripping, title/note splitting, fence-aware
// checklist addressing, and bot message templating. No state, no IO.
package taskparse

import "strings"

// Flag is the literal token that marks a message as a task trigger.
const Flag = ":task"

// HasFlag reports whether s contains the task flag as a standalone word,
// bounded by start/end of string or whitespace on both sides. Matching is
// case-insensitive; the flag inside a longer token never triggers.
func HasFlag(s string) bool {
	return findFlag(s) >= 0
}

// findFlag scans s directly and case-folds only the candidate window, so
// the returned offset is always a valid byte index into s regardless of any
// length-changing runes elsewhere in the content.
func findFlag(s string) int {
	for i := 0; i+len(Flag) <= len(s); i++ {
		if s[i] != ':' {
			continue
		}
		if !strings.EqualFold(s[i:i+len(Flag)], Flag) {
			continue
		}
		end := i + len(Flag)
		startOK := i == 0 || isSpace(s[i-1])
		endOK := end == len(s) || isSpace(s[end])
		if startOK && endOK {
			return i
		}
	}
	return -1
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// StripFlag removes every standalone task flag from s, together with one
// adjacent whitespace character so no double gap is left behind. If the
// result is empty after trimming, the original string is returned: a message
// body is never stored empty.
func StripFlag(s string) string {
	out := stripFlagRaw(s)
	if strings.TrimSpace(out) == "" {
		return s
	}
	return out
}

func stripFlagRaw(s string) string {
	out := s
	for {
		i := findFlag(out)
		if i < 0 {
			return out
		}
		end := i + len(Flag)
		switch {
		case i > 0 && isSpace(out[i-1]):
			out = out[:i-1] + out[end:]
		case end < len(out) && isSpace(out[end]):
			out = out[:i] + out[end+1:]
		default:
			out = out[:i] + out[end:]
		}
	}
}

// SplitTitleNote derives a task title and note from content. Line endings
// are normalized, the first non-blank line (trimmed) becomes the title, and
// the remainder after that line, minus leading blank lines and trailing
// whitespace, becomes the note. ok is false when no title line exists.
func SplitTitleNote(content string) (title, note string, ok bool) {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	normalized = strings.TrimRight(normalized, " \t\n")

	lines := strings.Split(normalized, "\n")
	titleIdx := -1
	for i, ln := range lines {
		if strings.TrimSpace(ln) != "" {
			titleIdx = i
			break
		}
	}
	if titleIdx < 0 {
		return "", "", false
	}
	title = strings.TrimSpace(lines[titleIdx])

	rest := lines[titleIdx+1:]
	for len(rest) > 0 && strings.TrimSpace(rest[0]) == "" {
		rest = rest[1:]
	}
	note = strings.TrimRight(strings.Join(rest, "\n"), " \t\n")
	return title, note, true
}

// Extraction is the outcome of running task extraction over raw message
// content.
type Extraction struct {
	// Stored is the content to persist for the message itself.
	Stored string
	Title  string
	Note   string
	// OK is true when a task should be created.
	OK bool
}

// Extract applies the dual-path extraction rules. The stored body is always
// the flag-stripped content. When the :task token is present, title and note
// are parsed from the stripped content; when only the explicit flag fired,
// they are parsed from the raw content. The two paths intentionally differ
// and must not be unified.
func Extract(raw string, explicitFlag bool) Extraction {
	stripped := stripFlagRaw(raw)
	ex := Extraction{Stored: stripped}
	if strings.TrimSpace(stripped) == "" {
		ex.Stored = raw
	}
	flagged := HasFlag(raw)
	if !flagged && !explicitFlag {
		return ex
	}
	src := raw
	if flagged {
		src = stripped
	}
	title, note, ok := SplitTitleNote(src)
	if !ok {
		return ex
	}
	ex.Title = title
	ex.Note = note
	ex.OK = true
	return ex
}
