package taskparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasFlag(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{":task", true},
		{":task fix the build", true},
		{"fix the build :task", true},
		{"fix :task now", true},
		{"fix\t:task\nnow", true},
		{":TASK shout", true},
		{"fix :Task now", true},
		{"foo:taskbar", false},
		{"x:taskx", false},
		{"foo:task", false},
		{":taskbar", false},
		{"task", false},
		{"", false},
		// Runes whose lowercase form has a different byte length must not
		// shift the match offsets.
		{"Ⱥ :task", true},
		{"ẞ :task", true},
		{"ẞA :task B", true},
		{"Ⱥ:task", false},
		{"ẞ:task", false},
		{"résumé :task über", true},
		{"Ⱥ ẞ Ⱥ ẞ", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, HasFlag(c.in), "input %q", c.in)
	}
}

func TestStripFlag(t *testing.T) {
	assert.Equal(t, "Ship release", StripFlag("Ship release :task"))
	assert.Equal(t, "Ship release", StripFlag(":task Ship release"))
	assert.Equal(t, "fix now", StripFlag("fix :task now"))
	assert.Equal(t, "no flag here", StripFlag("no flag here"))

	// Content that would be empty after stripping keeps the original body.
	assert.Equal(t, ":task", StripFlag(":task"))
	assert.Equal(t, " :task ", StripFlag(" :task "))
}

func TestStripFlagMultibyteContent(t *testing.T) {
	assert.Equal(t, "ẞA B", StripFlag("ẞA :task B"))
	assert.Equal(t, "Ⱥ done", StripFlag("Ⱥ done :task"))
	assert.Equal(t, "über alles", StripFlag(":task über alles"))
}

func TestStripFlagRoundTrip(t *testing.T) {
	inputs := []string{
		"Ship release :task",
		":task do it",
		"a :task b :task c",
		":task :task",
		"fix :TASK now",
		"ẞA :task B",
		"Ⱥ :task Ⱥ :task",
	}
	for _, in := range inputs {
		stripped := stripFlagRaw(in)
		assert.False(t, HasFlag(stripped), "stripping %q left %q", in, stripped)
	}
}

func TestSplitTitleNote(t *testing.T) {
	title, note, ok := SplitTitleNote("Fix bug\nremember to check logs\n")
	require.True(t, ok)
	assert.Equal(t, "Fix bug", title)
	assert.Equal(t, "remember to check logs", note)

	title, note, ok = SplitTitleNote("\n\n  Fix bug  \n\n\nnote line\n")
	require.True(t, ok)
	assert.Equal(t, "Fix bug", title)
	assert.Equal(t, "note line", note)

	title, note, ok = SplitTitleNote("just a title")
	require.True(t, ok)
	assert.Equal(t, "just a title", title)
	assert.Equal(t, "", note)

	_, _, ok = SplitTitleNote("   \n\t\n")
	assert.False(t, ok)
	_, _, ok = SplitTitleNote("")
	assert.False(t, ok)
}

func TestExtractTokenPath(t *testing.T) {
	ex := Extract("Ship release :task", false)
	assert.Equal(t, "Ship release", ex.Stored)
	require.True(t, ex.OK)
	assert.Equal(t, "Ship release", ex.Title)
	assert.Equal(t, "", ex.Note)
}

func TestExtractExplicitFlagParsesRawContent(t *testing.T) {
	// Explicit intent without the token: title/note come from the raw text.
	ex := Extract("Deploy\ncheck dashboards", true)
	require.True(t, ex.OK)
	assert.Equal(t, "Deploy\ncheck dashboards", ex.Stored)
	assert.Equal(t, "Deploy", ex.Title)
	assert.Equal(t, "check dashboards", ex.Note)

	// Token present wins: parsing runs over the stripped content even when
	// the explicit flag is also set.
	ex = Extract(":task Deploy\ncheck dashboards", true)
	require.True(t, ex.OK)
	assert.Equal(t, "Deploy\ncheck dashboards", ex.Stored)
	assert.Equal(t, "Deploy", ex.Title)
}

func TestExtractWhitespaceOnlyYieldsNoTask(t *testing.T) {
	ex := Extract(":task", false)
	assert.False(t, ex.OK)
	assert.Equal(t, ":task", ex.Stored)

	ex = Extract(" :task \n ", false)
	assert.False(t, ex.OK)

	ex = Extract("", false)
	assert.False(t, ex.OK)
}

func TestChecklistItemsSkipsFences(t *testing.T) {
	content := "- [ ] a\n```\n- [ ] fake\n```\n- [ ] b"
	items := ChecklistItems(content)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Label)
	assert.Equal(t, 0, items[0].Ordinal)
	assert.False(t, items[0].Checked)
	assert.Equal(t, "b", items[1].Label)
	assert.Equal(t, 1, items[1].Ordinal)
}

func TestChecklistItemsStates(t *testing.T) {
	items := ChecklistItems("- [x] done\n- [X] also\n- [ ] open\nnot a list\n-[ ] nope")
	require.Len(t, items, 3)
	assert.True(t, items[0].Checked)
	assert.True(t, items[1].Checked)
	assert.False(t, items[2].Checked)
}

func TestToggleChecklist(t *testing.T) {
	content := "- [ ] a\n```\n- [ ] fake\n```\n- [ ] b"

	got := ToggleChecklist(content, 1, true)
	assert.Equal(t, "- [ ] a\n```\n- [ ] fake\n```\n- [x] b", got)

	got = ToggleChecklist(got, 1, false)
	assert.Equal(t, content, got)

	// The fenced line is unreachable at any ordinal.
	got = ToggleChecklist(content, 2, true)
	assert.Equal(t, content, got)
	got = ToggleChecklist(content, -1, true)
	assert.Equal(t, content, got)
}

func TestToggleChecklistPreservesOtherLines(t *testing.T) {
	content := "intro\n- [ ] one\ntext between\n- [x] two\noutro"
	got := ToggleChecklist(content, 0, true)
	assert.Equal(t, "intro\n- [x] one\ntext between\n- [x] two\noutro", got)
}

func TestRenderBotMessage(t *testing.T) {
	out := RenderBotMessage("", "Ship it", "alice")
	assert.Equal(t, `Task created: "Ship it" by alice`, out)

	out = RenderBotMessage("{creator} filed {title} ({title})", "X", "bob")
	assert.Equal(t, "bob filed X (X)", out)
}
