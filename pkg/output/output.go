package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Stdout and Stderr are the destinations of all output. They default to
// color-aware writers and may be replaced in tests.
var (
	Stdout io.Writer = color.Output
	Stderr io.Writer = color.Error
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
	headerColor  = color.New(color.FgWhite, color.Bold)
)

func Success(format string, a ...any) {
	successColor.Fprintf(Stdout, "✓ "+format+"\n", a...)
}

func Error(format string, a ...any) {
	errorColor.Fprintf(Stderr, "✗ "+format+"\n", a...)
}

func Info(format string, a ...any) {
	infoColor.Fprintf(Stdout, format+"\n", a...)
}

func Warn(format string, a ...any) {
	warnColor.Fprintf(Stdout, "⚠ "+format+"\n", a...)
}

func JSON(v any) error {
	enc := json.NewEncoder(Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type Table struct {
	headers []string
	rows    [][]string
}

func NewTable(headers []string) *Table {
	return &Table{
		headers: headers,
		rows:    [][]string{},
	}
}

func (t *Table) AddRow(row ...string) {
	t.rows = append(t.rows, row)
}

func (t *Table) Render() {
	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	for i, header := range t.headers {
		headerColor.Fprintf(Stdout, "%-*s  ", widths[i], header)
	}
	fmt.Fprintln(Stdout)

	for i := range t.headers {
		fmt.Fprint(Stdout, strings.Repeat("-", widths[i])+"  ")
	}
	fmt.Fprintln(Stdout)

	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			fmt.Fprintf(Stdout, "%-*s  ", widths[i], cell)
		}
		fmt.Fprintln(Stdout)
	}
}
