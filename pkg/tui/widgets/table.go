package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/stackctl/pkg/tui/styles"
)

type Column struct {
	Header string
	Width  int
	Align  lipgloss.Position
}

// Row is one line of cells. Status, when set, colors the row's icon.
type Row struct {
	Status string
	Cells  []string
}

// Table renders fixed-width columns. Cursor < 0 disables selection.
type Table struct {
	Columns []Column
	Rows    []Row
	Cursor  int
	theme   styles.Theme
}

func NewTable(cols []Column) Table {
	return Table{Columns: cols, Cursor: -1, theme: styles.DefaultTheme()}
}

func (t Table) WithRows(rows []Row) Table {
	t.Rows = rows
	return t
}

func (t Table) WithCursor(i int) Table {
	t.Cursor = i
	return t
}

func (t Table) cell(text string, col Column) string {
	w := col.Width
	if w <= 0 {
		w = 16
	}
	if lipgloss.Width(text) > w {
		r := []rune(text)
		if len(r) > w-1 {
			text = string(r[:w-1]) + "…"
		}
	}
	return lipgloss.NewStyle().Width(w).Align(col.Align).Render(text)
}

func (t Table) Render() string {
	theme := t.theme
	var lines []string

	header := []string{"    "}
	for _, c := range t.Columns {
		header = append(header, theme.Header.Render(t.cell(c.Header, c)))
	}
	lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, header...))

	if len(t.Rows) == 0 {
		lines = append(lines, theme.TitleMuted.Render("    (no services)"))
		return strings.Join(lines, "\n")
	}

	for i, row := range t.Rows {
		cursor := "  "
		if i == t.Cursor {
			cursor = theme.KeybindKey.Render("> ")
		}
		parts := []string{cursor, theme.ForStatus(row.Status).Render(styles.HealthIcon(row.Status)) + " "}
		for j, c := range row.Cells {
			col := Column{Width: 16}
			if j < len(t.Columns) {
				col = t.Columns[j]
			}
			style := lipgloss.NewStyle().Foreground(theme.TextDim)
			if j == 1 {
				style = theme.ForStatus(row.Status)
			}
			if i == t.Cursor {
				style = style.Bold(true)
			}
			parts = append(parts, style.Render(t.cell(c, col)))
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, parts...))
	}
	return strings.Join(lines, "\n")
}
