package export

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/popframe/internal/model"
)

// Table is a named header plus rows, one XLSX sheet or one CSV file.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

func itoa(n int) string { return strconv.Itoa(n) }

// SettlementTable lists settlements with their level.
func SettlementTable(settlements []model.Settlement) Table {
	t := Table{Name: "settlements", Header: []string{"id", "name", "population", "level", "level_name", "x", "y"}}
	for _, s := range settlements {
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(s.ID, 10), s.Name, itoa(s.Population), itoa(int(s.Level)), s.LevelName,
			strconv.FormatFloat(s.X, 'f', -1, 64), strconv.FormatFloat(s.Y, 'f', -1, 64),
		})
	}
	return t
}

// AgglomerationTable lists agglomerations without geometry.
func AgglomerationTable(aggs []model.Agglomeration) Table {
	t := Table{Name: "agglomerations", Header: []string{"name", "core_cities", "type", "population", "level"}}
	for _, a := range aggs {
		t.Rows = append(t.Rows, []string{
			a.Name, strings.Join(a.CoreCities, "; "), string(a.Type), itoa(a.Population), itoa(a.Level),
		})
	}
	return t
}

// MembershipTable lists each settlement's agglomeration status.
func MembershipTable(members []model.Membership) Table {
	t := Table{Name: "membership", Header: []string{"id", "name", "status", "agglomeration", "level"}}
	for _, m := range members {
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(m.SettlementID, 10), m.Name, string(m.Status), m.Agglomeration, itoa(m.Level),
		})
	}
	return t
}

// AreaTable lists frame areas without geometry.
func AreaTable(areas []model.FrameArea) Table {
	t := Table{Name: "areas", Header: []string{"name", "community", "population", "settlements"}}
	for _, a := range areas {
		t.Rows = append(t.Rows, []string{a.Name, itoa(a.Community), itoa(a.Population), joinIDs(a.Settlements)})
	}
	return t
}

// WriteCSV writes the table with its header row.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return eris.Wrapf(err, "export: write csv %s", t.Name)
	}
	return nil
}

// WriteXLSX saves the tables as sheets of one workbook. Numeric-looking
// cells are stored as numbers.
func WriteXLSX(path string, tables ...Table) error {
	f := xlsx.NewFile()
	for _, t := range tables {
		sheet, err := f.AddSheet(t.Name)
		if err != nil {
			return eris.Wrapf(err, "export: add sheet %s", t.Name)
		}
		header := sheet.AddRow()
		for _, h := range t.Header {
			header.AddCell().SetString(h)
		}
		for _, r := range t.Rows {
			row := sheet.AddRow()
			for _, v := range r {
				cell := row.AddCell()
				if n, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
					cell.SetFloat(n)
				} else {
					cell.SetString(v)
				}
			}
		}
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}
