package compare

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// WriteText renders the matrix as an aligned plain-text table.
func (m Matrix) WriteText(w io.Writer) error {
	header := make([]string, 0, len(m.Columns)+1)
	header = append(header, m.Header)
	for _, c := range m.Columns {
		header = append(header, c.Name)
	}
	lines := [][]string{header}
	for _, r := range m.Rows {
		line := make([]string, 0, len(r.Cells)+1)
		line = append(line, r.Label)
		line = append(line, r.Cells...)
		lines = append(lines, line)
	}

	widths := make([]int, len(header))
	for _, line := range lines {
		for i, cell := range line {
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var b strings.Builder
	for li, line := range lines {
		for i, cell := range line {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(cell)
			if i < len(line)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell)))
			}
		}
		b.WriteByte('\n')
		if li == 0 {
			for i, wd := range widths {
				if i > 0 {
					b.WriteString("-+-")
				}
				b.WriteString(strings.Repeat("-", wd))
			}
			b.WriteByte('\n')
		}
	}
	_, err := io.WriteString(w, b.String())
	if err != nil {
		return fmt.Errorf("compare: write table: %w", err)
	}
	return nil
}
