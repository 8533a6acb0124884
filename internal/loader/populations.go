package loader

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/popframe/internal/model"
)

// LoadPopulations reads population updates keyed by settlement id, either
// from a JSON object {"id": population} or from a table with the id and
// population columns of f.
func LoadPopulations(path string, f Fields) (map[int64]int, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: read %s", path)
		}
		return DecodePopulations(data)
	}

	rows, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[int64]int{}, nil
	}
	h := newHeader(rows[0])
	for _, col := range []string{f.ID, f.Population} {
		if _, ok := h[col]; !ok {
			return nil, eris.Wrapf(model.ErrInvalidInput, "loader: population table lacks column %q", col)
		}
	}

	out := make(map[int64]int, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		idCell, _ := h.get(row, f.ID)
		popCell, _ := h.get(row, f.Population)
		id, err := parseID(idCell)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: population row %d", i+2)
		}
		pop, err := parseInt(popCell)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: population row %d", i+2)
		}
		out[id] = pop
	}
	return out, nil
}

// DecodePopulations parses a JSON object mapping settlement ids to
// populations.
func DecodePopulations(data []byte) (map[int64]int, error) {
	var raw map[string]json.Number
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrapf(model.ErrInvalidInput, "loader: decode populations: %v", err)
	}
	out := make(map[int64]int, len(raw))
	for k, v := range raw {
		id, err := parseID(k)
		if err != nil {
			return nil, err
		}
		pop, err := parseInt(v.String())
		if err != nil {
			return nil, eris.Wrapf(err, "loader: population of %d", id)
		}
		out[id] = pop
	}
	return out, nil
}
