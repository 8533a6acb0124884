package loader

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/popframe/internal/model"
)

// LoadMatrix reads an accessibility matrix from CSV or XLSX. The first row
// lists destination ids after a corner cell; every following row starts
// with its source id. Rows may come in any order but must cover exactly the
// column ids.
func LoadMatrix(path string) (*model.Matrix, error) {
	rows, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	m, err := parseMatrix(rows)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: matrix from %s", path)
	}
	return m, nil
}

func parseMatrix(rows [][]string) (*model.Matrix, error) {
	if len(rows) == 0 || len(rows[0]) < 2 {
		return nil, eris.Wrap(model.ErrInvalidInput, "loader: matrix needs a header row of ids")
	}

	ids := make([]int64, 0, len(rows[0])-1)
	col := make(map[int64]int, len(rows[0])-1)
	for _, cell := range rows[0][1:] {
		id, err := parseID(cell)
		if err != nil {
			return nil, eris.Wrap(err, "loader: matrix header")
		}
		if _, dup := col[id]; dup {
			return nil, eris.Wrapf(model.ErrInvalidInput, "loader: duplicate matrix id %d", id)
		}
		col[id] = len(ids)
		ids = append(ids, id)
	}

	values := make([][]float64, len(ids))
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		id, err := parseID(row[0])
		if err != nil {
			return nil, eris.Wrap(err, "loader: matrix row id")
		}
		i, ok := col[id]
		if !ok {
			return nil, eris.Wrapf(model.ErrInvalidInput, "loader: matrix row %d has no matching column", id)
		}
		if values[i] != nil {
			return nil, eris.Wrapf(model.ErrInvalidInput, "loader: matrix row %d repeated", id)
		}
		if len(row)-1 != len(ids) {
			return nil, eris.Wrapf(model.ErrInvalidInput, "loader: matrix row %d has %d values, want %d", id, len(row)-1, len(ids))
		}
		vals := make([]float64, len(ids))
		for j, cell := range row[1:] {
			if vals[j], err = parseFloat(cell); err != nil {
				return nil, eris.Wrapf(err, "loader: matrix row %d", id)
			}
		}
		values[i] = vals
	}
	for i, v := range values {
		if v == nil {
			return nil, eris.Wrapf(model.ErrInvalidInput, "loader: matrix lacks row %d", ids[i])
		}
	}
	return model.NewMatrix(ids, values)
}
