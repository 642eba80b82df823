package tui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"
)

func createViewport(doc previewDoc, inContext bool, width, height int) viewport.Model {
	vp := viewport.New(width, height-2)
	vp.SetContent(renderPreview(doc, inContext, width))
	return vp
}

func renderPreview(doc previewDoc, inContext bool, width int) string {
	var b strings.Builder
	md := doc.Metadata

	title := md.Title
	if title == "" {
		title = doc.Path
	}
	b.WriteString(titleStyle.Render(title) + "\n")
	b.WriteString(metaStyle.Render(fmt.Sprintf("%s | %d words | %s", doc.Path, md.Words, shortSHA(doc.SHA))) + "\n")
	if md.Author != "" || md.Status != "" {
		b.WriteString(metaStyle.Render(fmt.Sprintf("author: %s | status: %s", md.Author, md.Status)) + "\n")
	}
	if len(md.Tags) > 0 {
		b.WriteString(metaStyle.Render("tags: "+strings.Join(md.Tags, ", ")) + "\n")
	}
	if inContext {
		b.WriteString(contextItemStyle.Render("● in completion context") + "\n")
	}
	if width > 0 {
		b.WriteString(strings.Repeat("─", width) + "\n")
	}

	wrap := width
	if wrap <= 0 {
		wrap = 80
	}

	body := doc.Content
	if md.HasFront {
		front := strings.TrimRight(body[:md.BodyStart], "\n")
		b.WriteString(frontMatterStyle.Render(front) + "\n")
		body = body[md.BodyStart:]
	}
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "#") {
			b.WriteString(headingStyle.Render(line) + "\n")
			continue
		}
		b.WriteString(wordwrap.String(line, wrap) + "\n")
	}
	return b.String()
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func (m Model) updatePreview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = listView
		m.status = ""
		return m, nil

	case "c":
		if m.preview == nil {
			return m, nil
		}
		content := m.preview.Content
		return m, func() tea.Msg {
			if err := clipboard.WriteAll(content); err != nil {
				return statusMsg("Copy failed: " + err.Error())
			}
			return statusMsg("Copied to clipboard")
		}

	case " ", "x":
		if m.preview != nil {
			return m, toggleContext(m.store, m.project, m.preview.Path)
		}
		return m, nil

	case "g":
		m.viewport.GotoTop()
		return m, nil

	case "G":
		m.viewport.GotoBottom()
		return m, nil

	case "d":
		m.viewport.HalfViewDown()
		return m, nil

	case "u":
		m.viewport.HalfViewUp()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) viewPreview() string {
	footer := fmt.Sprintf("%3.f%% • j/k scroll • space context • c copy • esc back", m.viewport.ScrollPercent()*100)
	if m.status != "" {
		footer = statusStyle.Render(m.status) + helpStyle.Render(" • esc back")
	}
	return m.viewport.View() + "\n" + helpStyle.Render(footer)
}
