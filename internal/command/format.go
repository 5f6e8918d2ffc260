package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/keybrdist/makiso/internal/types"
)

const maxBodyPreview = 120

var (
	idStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	topicStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("111")).Bold(true)
	metaStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229"))

	statusStyles = map[types.EventStatus]lipgloss.Style{
		types.StatusPending:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		types.StatusProcessing: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		types.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("35")),
		types.StatusFailed:     lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
	}
)

func statusLabel(status types.EventStatus) string {
	style, ok := statusStyles[status]
	if !ok {
		return string(status)
	}
	return style.Render(string(status))
}

// FormatEvent renders a single event line for terminal output.
func FormatEvent(event types.Event) string {
	body := event.Body
	if len(body) > maxBodyPreview {
		body = body[:maxBodyPreview] + "..."
	}
	body = strings.ReplaceAll(body, "\n", " ")

	line := fmt.Sprintf("%s %s %s %s",
		idStyle.Render("["+event.ID+"]"),
		topicStyle.Render(event.Topic),
		statusLabel(event.Status),
		body,
	)

	var meta []string
	if event.ClaimedBy != nil {
		meta = append(meta, "claimed by "+*event.ClaimedBy)
	}
	if scope := formatScope(event); scope != "" {
		meta = append(meta, scope)
	}
	meta = append(meta, relativeTime(event.CreatedAt))
	return line + " " + metaStyle.Render("("+strings.Join(meta, ", ")+")")
}

// FormatTopic renders a topic line for terminal output.
func FormatTopic(topic types.Topic) string {
	line := topicStyle.Render(topic.Name)
	if topic.Description != nil {
		line += " " + *topic.Description
	}
	if topic.SystemPrompt != nil {
		line += "\n  " + promptStyle.Render(*topic.SystemPrompt)
	}
	return line
}

func formatScope(event types.Event) string {
	var parts []string
	if event.OrgID != nil {
		parts = append(parts, *event.OrgID)
	}
	if event.WorkspaceID != nil {
		parts = append(parts, *event.WorkspaceID)
	}
	if event.ProjectID != nil {
		parts = append(parts, *event.ProjectID)
	}
	if event.RepoID != nil {
		parts = append(parts, *event.RepoID)
	}
	return strings.Join(parts, "/")
}

func relativeTime(unixMillis int64) string {
	delta := time.Since(time.UnixMilli(unixMillis))
	switch {
	case delta < time.Minute:
		return "just now"
	case delta < time.Hour:
		return fmt.Sprintf("%dm ago", int(delta.Minutes()))
	case delta < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(delta.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(delta.Hours()/24))
	}
}
