package docgate

// ParamsRowMarker in the second cell of the first CSV row marks that row as
// the parameters row. Its values start at the third cell.
const ParamsRowMarker = "params_row"

// splitCSV separates the parameters row, if any, from the data rows. Only
// the first row is inspected; every other row is a document.
func splitCSV(rows [][]string) (params []string, data [][]string, ok bool) {
	if len(rows) == 0 {
		return nil, nil, false
	}
	if first := rows[0]; len(first) > 1 && first[1] == ParamsRowMarker {
		return first[2:], rows[1:], true
	}
	return nil, rows, false
}
