// Package loader parses the region inputs: settlement points, the
// accessibility matrix, the boundary polygon and population overrides.
package loader

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/popframe/internal/model"
)

// ReadTable reads a CSV or XLSX file (first sheet) into trimmed string rows.
func ReadTable(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return readCSV(path)
	case ".xlsx":
		return readXLSX(path)
	}
	return nil, eris.Wrapf(model.ErrInvalidInput, "loader: %s is not a csv or xlsx file", path)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read csv %s", path)
	}
	for _, row := range rows {
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Wrapf(model.ErrInvalidInput, "loader: %s has no sheets", path)
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = strings.TrimSpace(c.String())
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// header maps lower-cased column names to their index.
type header map[string]int

func newHeader(row []string) header {
	h := make(header, len(row))
	for i, name := range row {
		h[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return h
}

func (h header) get(row []string, col string) (string, bool) {
	i, ok := h[col]
	if !ok || i >= len(row) {
		return "", false
	}
	return row[i], true
}

// cleanName trims a settlement name and brings it to Unicode NFC so that
// names from different sources compare equal.
func cleanName(s string) string {
	return norm.NFC.String(strings.TrimSpace(strings.TrimRight(s, "\x00")))
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		// Spreadsheets hand back integral ids as "12.0".
		f, ferr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if ferr != nil || f != float64(int64(f)) {
			return 0, eris.Wrapf(model.ErrInvalidInput, "loader: bad id %q", s)
		}
		return int64(f), nil
	}
	return id, nil
}

func parseInt(s string) (int, error) {
	id, err := parseID(s)
	if err != nil {
		return 0, eris.Wrapf(model.ErrInvalidInput, "loader: bad integer %q", s)
	}
	return int(id), nil
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, eris.Wrapf(model.ErrInvalidInput, "loader: bad number %q", s)
	}
	return f, nil
}
