package taskparse

import "strings"

// DefaultBotTemplate announces a dashboard-created task when no template is
// configured.
const DefaultBotTemplate = `Task created: "{title}" by {creator}`

// RenderBotMessage fills the announcement template. Every occurrence of
// {title} and {creator} is substituted; a blank template falls back to
// DefaultBotTemplate.
func RenderBotMessage(template, title, creator string) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultBotTemplate
	}
	out := strings.ReplaceAll(template, "{title}", title)
	out = strings.ReplaceAll(out, "{creator}", creator)
	return out
}
