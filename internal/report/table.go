package report

import "github.com/mattn/go-runewidth"

// renderTable emits a markdown table with cells padded to column width
// so the source stays readable. aligns holds one letter per column,
// 'l' or 'r', mirrored in the separator row markers.
func renderTable(headers []string, aligns string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				if w := runewidth.StringWidth(cell); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}

	var out []byte
	writeRow := func(cells []string, alignRight func(int) bool) {
		out = append(out, '|')
		for i := range headers {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			if alignRight(i) {
				cell = runewidth.FillLeft(cell, widths[i])
			} else {
				cell = runewidth.FillRight(cell, widths[i])
			}
			out = append(out, ' ')
			out = append(out, cell...)
			out = append(out, ' ', '|')
		}
		out = append(out, '\n')
	}
	right := func(i int) bool { return i < len(aligns) && aligns[i] == 'r' }

	writeRow(headers, func(int) bool { return false })

	out = append(out, '|')
	for i := range headers {
		dashes := widths[i]
		if right(i) {
			for j := 0; j < dashes+1; j++ {
				out = append(out, '-')
			}
			out = append(out, ':', '|')
		} else {
			out = append(out, ':')
			for j := 0; j < dashes+1; j++ {
				out = append(out, '-')
			}
			out = append(out, '|')
		}
	}
	out = append(out, '\n')

	for _, row := range rows {
		writeRow(row, right)
	}
	return string(out)
}
