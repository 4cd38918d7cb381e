package postgres

import (
	"fmt"
	"strings"
)

// maxParams stays below the 65535 bind-parameter cap of the extended
// protocol, with headroom the way the other backends leave it.
const maxParams = 60000

// rowsPerStatement returns how many rows of the given width fit under the
// parameter budget. Always at least one.
func rowsPerStatement(width int) int {
	if width <= 0 {
		return 1
	}
	n := maxParams / width
	if n < 1 {
		n = 1
	}
	return n
}

// buildInsertSQL constructs one positional multi-row INSERT and its args.
//
// No column list is emitted: the pipeline's core invariant is that DDL column
// order matches row column order, and positional VALUES rely on exactly that.
// Naming columns here would re-introduce identifier case-folding mismatches
// against the unquoted DDL.
//
// Pure and deterministic so placeholder numbering can be unit tested without
// a database. Callers guarantee all rows have the same width.
func buildInsertSQL(table string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" VALUES ")

	width := 0
	if len(rows) > 0 {
		width = len(rows[0])
	}

	args := make([]any, 0, len(rows)*width)
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j, v := range row {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", p)
			args = append(args, v)
			p++
		}
		b.WriteString(")")
	}

	return b.String(), args
}
