package schema

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

// CSV dialect: comma delimited, quoting disabled, backslash escapes the
// next character (including the delimiter, a line break, or itself).
const (
	Delimiter = ','
	Escape    = '\\'
)

// ReadRows reads every row of a headerless CSV body. Lines are terminated
// by \n, \r or \r\n. A dangling escape at end of input, a NUL byte or
// invalid UTF-8 is a *CSVSyntaxError.
//
// Blank lines are skipped instead of being returned as zero-cell rows, so a
// blank line never reaches the shape check as a document. A line holding
// only a delimiter is not blank.
func ReadRows(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)

	var (
		rows    [][]string
		row     []string
		field   strings.Builder
		line    = 1
		content bool
		escaped bool
	)

	endRow := func() {
		if content {
			rows = append(rows, append(row, field.String()))
		}
		row = nil
		field.Reset()
		content = false
		line++
	}

	for {
		c, size, err := br.ReadRune()
		if errors.Is(err, io.EOF) {
			if escaped {
				return nil, &CSVSyntaxError{Line: line, Msg: "unexpected end of data after escape character"}
			}
			if content {
				rows = append(rows, append(row, field.String()))
			}
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		if c == utf8.RuneError && size == 1 {
			return nil, &CSVSyntaxError{Line: line, Msg: "invalid UTF-8"}
		}
		if c == 0 {
			return nil, &CSVSyntaxError{Line: line, Msg: "line contains NUL"}
		}

		if escaped {
			field.WriteRune(c)
			escaped = false
			if c == '\n' || c == '\r' {
				line++
			}
			continue
		}

		switch c {
		case Escape:
			escaped = true
			content = true
		case Delimiter:
			row = append(row, field.String())
			field.Reset()
			content = true
		case '\r':
			if next, _, err := br.ReadRune(); err == nil && next != '\n' {
				_ = br.UnreadRune()
			}
			endRow()
		case '\n':
			endRow()
		default:
			field.WriteRune(c)
			content = true
		}
	}
}

// WriteRows writes rows in the dialect ReadRows accepts. A row whose only
// cell is empty produces a blank line and is therefore not read back.
func WriteRows(w io.Writer, rows [][]string) error {
	bw := bufio.NewWriter(w)
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				bw.WriteByte(Delimiter)
			}
			bw.WriteString(EscapeCell(cell))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

var cellEscaper = strings.NewReplacer(
	`\`, `\\`,
	`,`, `\,`,
	"\n", "\\\n",
	"\r", "\\\r",
)

// EscapeCell escapes the delimiter, the escape character and line breaks in s.
func EscapeCell(s string) string {
	return cellEscaper.Replace(s)
}
