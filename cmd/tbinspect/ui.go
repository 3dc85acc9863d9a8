package main

import (
	"fmt"
	"github.com/JoseEd0/tablefile/schema"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"sort"
	"strings"
)

const maxColumnWidth = 30

var (
	primaryColor   = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7C3AED"}
	secondaryColor = lipgloss.AdaptiveColor{Light: "#EE6FF8", Dark: "#06B6D4"}
	mutedColor     = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#94A3B8"}
	errorColor     = lipgloss.AdaptiveColor{Light: "#FF5F56", Dark: "#EF4444"}
	fgColor        = lipgloss.AdaptiveColor{Light: "#1E1E2E", Dark: "#CDD6F4"}
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			Padding(0, 1).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	selectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(primaryColor).
				Bold(true).
				Padding(0, 1)

	itemStyle = lipgloss.NewStyle().
			Foreground(fgColor).
			Padding(0, 1)

	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(secondaryColor).
				Bold(true).
				Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Foreground(fgColor).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(fgColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primaryColor).
			Padding(0, 1).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true).
			Padding(1)

	separatorStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

type browserKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Back   key.Binding
	Quit   key.Binding
}

var browserKeys = browserKeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "move up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "move down"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "view table"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "backspace"),
		key.WithHelp("esc", "back"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// browserModel - The interactive browser, a menu of table names and a row view per table
type browserModel struct {
	tables      []string
	limit       int
	currentView string
	cursor      int
	viewport    viewport.Model
	width       int
	height      int
	ready       bool
	err         error
	report      tableReport
}

func initialBrowserModel(tables []string, limit int) browserModel {
	return browserModel{
		tables:      tables,
		limit:       limit,
		currentView: "menu",
	}
}

func (m browserModel) Init() tea.Cmd {
	return nil
}

type tableLoadedMsg struct {
	report tableReport
	err    error
}

func loadTable(name string, limit int) tea.Cmd {
	return func() tea.Msg {
		report, err := inspectTable(name, limit)
		return tableLoadedMsg{report: report, err: err}
	}
}

func (m browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tableLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.report = msg.report
		m.currentView = "rows"
		if m.ready {
			m.viewport.SetContent(renderReportBody(m.report))
			m.viewport.GotoTop()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport = viewport.New(msg.Width-2, msg.Height-8)
		m.ready = true
		if m.currentView == "rows" {
			m.viewport.SetContent(renderReportBody(m.report))
		}
		return m, nil

	case tea.KeyMsg:
		if m.err != nil {
			switch {
			case key.Matches(msg, browserKeys.Quit):
				return m, tea.Quit
			case key.Matches(msg, browserKeys.Back):
				m.err = nil
			}
			return m, nil
		}

		switch m.currentView {
		case "menu":
			switch {
			case key.Matches(msg, browserKeys.Quit):
				return m, tea.Quit
			case key.Matches(msg, browserKeys.Up):
				if m.cursor > 0 {
					m.cursor--
				}
			case key.Matches(msg, browserKeys.Down):
				if m.cursor < len(m.tables)-1 {
					m.cursor++
				}
			case key.Matches(msg, browserKeys.Select):
				if m.cursor < len(m.tables) {
					return m, loadTable(m.tables[m.cursor], m.limit)
				}
			}
			return m, nil

		case "rows":
			switch {
			case key.Matches(msg, browserKeys.Quit):
				return m, tea.Quit
			case key.Matches(msg, browserKeys.Back):
				m.currentView = "menu"
				m.report = tableReport{}
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m browserModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress esc to go back or q to quit.", m.err))
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Table Inspector") + "\n\n")

	switch m.currentView {
	case "menu":
		b.WriteString(m.renderMenu())
	case "rows":
		b.WriteString(m.renderRows())
	}

	b.WriteString("\n" + m.renderStatusBar())

	return b.String()
}

func (m browserModel) renderMenu() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf(" Tables (%d) ", len(m.tables))) + "\n\n")

	for i, name := range m.tables {
		if i == m.cursor {
			b.WriteString(selectedItemStyle.Render("> "+name) + "\n")
		} else {
			b.WriteString(itemStyle.Render("  "+name) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓: navigate | enter: view table | q: quit"))

	return b.String()
}

func (m browserModel) renderRows() string {
	if !m.ready {
		return "Loading...\n"
	}

	var b strings.Builder

	header := headerStyle.Render(fmt.Sprintf(" %s (%s, %d records) ",
		m.report.name,
		m.report.organization,
		m.report.totalRecords))
	b.WriteString(header + "\n\n")

	b.WriteString(m.viewport.View() + "\n")
	b.WriteString(helpStyle.Render("↑/↓: scroll | esc: back | q: quit"))

	return b.String()
}

func (m browserModel) renderStatusBar() string {
	var status string
	switch m.currentView {
	case "menu":
		status = fmt.Sprintf(" Menu | Tables: %d ", len(m.tables))
	case "rows":
		status = fmt.Sprintf(" %s | %s | %d records ", m.report.name, m.report.organization, m.report.totalRecords)
	default:
		status = " Loading... "
	}
	return statusBarStyle.Render(status)
}

// renderReport - Renders a full dump mode report for one table
func renderReport(report tableReport) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Table %s", report.name)) + "\n")
	b.WriteString(renderReportBody(report))

	return b.String()
}

// renderReportBody - Renders schema, file, hashing and row information without the outer title
func renderReportBody(report tableReport) string {
	var b strings.Builder

	b.WriteString(labelStyle.Render("Organization: ") + valueStyle.Render(report.organization) + "\n")
	b.WriteString(labelStyle.Render("Key field:    ") + valueStyle.Render(report.keyField) + "\n")
	b.WriteString(labelStyle.Render("Records:      ") + valueStyle.Render(fmt.Sprintf("%d", report.totalRecords)) + "\n\n")

	b.WriteString(labelStyle.Render("Fields") + "\n")
	for _, field := range report.fields {
		line := fmt.Sprintf("  %s %s", field.Name, field.Type)
		if field.Type == schema.Char {
			line = fmt.Sprintf("%s(%d)", line, field.Size)
		}
		if field.Name == report.keyField {
			line += " key"
		}
		b.WriteString(valueStyle.Render(line) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Files") + "\n")
	fileNames := make([]string, 0, len(report.stat.FileSizes))
	for fileName := range report.stat.FileSizes {
		fileNames = append(fileNames, fileName)
	}
	sort.Strings(fileNames)
	for _, fileName := range fileNames {
		b.WriteString(valueStyle.Render(fmt.Sprintf("  %s %d B", fileName, report.stat.FileSizes[fileName])) + "\n")
	}
	b.WriteString("\n")

	if report.stat.DirectoryLength > 0 {
		b.WriteString(labelStyle.Render("Hashing") + "\n")
		b.WriteString(valueStyle.Render(fmt.Sprintf("  global depth %d, directory length %d", report.stat.GlobalDepth, report.stat.DirectoryLength)) + "\n")
		b.WriteString(valueStyle.Render(fmt.Sprintf("  %d bucket records, %d overflow records", report.stat.BucketRecords, report.stat.OverflowRecords)) + "\n")
		b.WriteString(valueStyle.Render(fmt.Sprintf("  bucket distribution %v", report.stat.BucketDistribution)) + "\n")
		b.WriteString("\n")
	}

	if len(report.rows) == 0 {
		b.WriteString(valueStyle.Render("No rows.") + "\n")
		return b.String()
	}

	b.WriteString(renderRowTable(report.headers, report.rows))
	if report.truncated {
		b.WriteString(helpStyle.Render(fmt.Sprintf("Showing the first %d of %d rows", len(report.rows), report.totalRecords)) + "\n")
	}

	return b.String()
}

// renderRowTable - Renders rows as a grid with padded headers and cells
func renderRowTable(headers []string, rows [][]string) string {
	widths := columnWidths(headers, rows)

	var b strings.Builder

	headerRow := ""
	for i, header := range headers {
		headerRow += tableHeaderStyle.Render(padString(header, widths[i]))
		if i < len(headers)-1 {
			headerRow += " "
		}
	}
	b.WriteString(headerRow + "\n")

	separator := ""
	for i, width := range widths {
		separator += strings.Repeat("─", width+2)
		if i < len(widths)-1 {
			separator += "┼"
		}
	}
	b.WriteString(separatorStyle.Render(separator) + "\n")

	for _, row := range rows {
		rowStr := ""
		for i, cell := range row {
			rowStr += cellStyle.Render(padString(truncateString(cell, maxColumnWidth), widths[i]))
			if i < len(row)-1 {
				rowStr += " "
			}
		}
		b.WriteString(rowStr + "\n")
	}

	return b.String()
}

func columnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = len(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	for i := range widths {
		if widths[i] > maxColumnWidth {
			widths[i] = maxColumnWidth
		}
	}
	return widths
}

func padString(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func truncateString(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}
