package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/neilberkman/escriba/internal/core/library"
	"github.com/neilberkman/escriba/internal/core/models"
)

type fileListItem struct {
	item fileItem
}

func (i fileListItem) FilterValue() string {
	return i.item.File.Path
}

func (i fileListItem) Title() string {
	mark := "  "
	if i.item.Context {
		mark = "● "
	}
	return mark + i.item.File.Path
}

func (i fileListItem) Description() string {
	return fmt.Sprintf("  %s | %s", i.item.File.Root, humanize.Bytes(uint64(i.item.File.Size)))
}

// fileDelegate highlights files selected as context
type fileDelegate struct {
	list.DefaultDelegate
}

func (d fileDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	f, ok := item.(fileListItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}

	title := f.Title()
	desc := f.Description()

	switch {
	case index == m.Index():
		title = selectedItemStyle.Render(title)
		desc = selectedItemStyle.Faint(true).Render(desc)
	case f.item.Context:
		title = contextItemStyle.Render(title)
		desc = itemStyle.Render(sectionStyle.Render(desc))
	default:
		title = itemStyle.Render(title)
		desc = itemStyle.Render(sectionStyle.Render(desc))
	}

	fmt.Fprintf(w, "%s\n%s", title, desc)
}

func buildItems(listing *library.Listing, selected *models.ContextSelection) []fileItem {
	all := listing.All()
	items := make([]fileItem, 0, len(all))
	for _, f := range all {
		items = append(items, fileItem{File: f, Context: selected.Contains(f.Path)})
	}
	return items
}

func markContext(items []fileItem, selected *models.ContextSelection) []fileItem {
	out := make([]fileItem, len(items))
	for i, it := range items {
		it.Context = selected.Contains(it.File.Path)
		out[i] = it
	}
	return out
}

func listItems(files []fileItem) []list.Item {
	items := make([]list.Item, len(files))
	for i, f := range files {
		items[i] = fileListItem{item: f}
	}
	return items
}

func createFileList(files []fileItem, width, height int) list.Model {
	delegate := fileDelegate{DefaultDelegate: list.NewDefaultDelegate()}

	l := list.New(listItems(files), delegate, width, height-2) // Reserve header and help lines
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetFilteringEnabled(true)

	return l
}

func (m Model) selectedFile() (fileItem, bool) {
	if m.files == nil {
		return fileItem{}, false
	}
	selected, ok := m.list.SelectedItem().(fileListItem)
	return selected.item, ok
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.files != nil && m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "enter":
		if f, ok := m.selectedFile(); ok {
			m.loading = true
			m.status = ""
			return m, tea.Batch(loadPreview(m.remote, m.project, m.ref, f.File.Path), m.spinner.Tick)
		}
		return m, nil

	case " ", "x":
		if f, ok := m.selectedFile(); ok {
			return m, toggleContext(m.store, m.project, f.File.Path)
		}
		return m, nil

	case "r":
		m.loading = true
		m.status = "Reloading..."
		return m, tea.Batch(loadLibrary(m.remote, m.store, m.project, m.ref), m.spinner.Tick)
	}

	if m.files == nil {
		return m, nil
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) viewList() string {
	header := titleStyle.Render(m.project.Key()+"@"+m.ref) +
		sectionStyle.Render(fmt.Sprintf("  %d files, %d in context", len(m.files), m.selected.Len()))

	helpText := "↑/k up • ↓/j down • enter preview • space context • / filter • q quit • ? more"
	switch {
	case m.err != nil:
		helpText = errorStyle.Render("Error: " + m.err.Error())
	case m.loading:
		helpText = m.spinner.View() + " Loading..."
	case m.status != "":
		helpText = statusStyle.Render(m.status)
	}

	if len(m.files) == 0 {
		return header + "\n\nNo markdown files under books/ or references/.\n\n" + helpText
	}

	return header + "\n" + m.list.View() + "\n" + helpText
}
