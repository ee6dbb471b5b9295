// Package wells loads well-head coordinates from a spreadsheet.
package wells

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/xuri/excelize/v2"
)

var (
	ErrNoSheet        = errors.New("workbook has no sheets")
	ErrEmptySheet     = errors.New("sheet has no header row")
	ErrColumnNotFound = errors.New("column not found")
	ErrBadCoordinate  = errors.New("invalid coordinate")
	ErrNoWells        = errors.New("sheet has no well rows")
)

// Columns names the header cells that hold the well identifier and its planar coordinates.
type Columns struct {
	ID string
	X  string
	Y  string
}

// DefaultColumns are the headers used by the field survey workbooks.
var DefaultColumns = Columns{
	ID: "井号",
	X:  "横轴坐标x(m)",
	Y:  "纵轴坐标y(m)",
}

type Well struct {
	// ID is the identifier cell, or the 0-based row position when the sheet has no identifier column.
	ID    string
	Point orb.Point
}

// Table is one loaded sheet: the raw cells of every data row plus the parsed wells, in input order.
type Table struct {
	Sheet   string
	Columns Columns
	Header  []string
	Rows    [][]string
	Wells   []Well
	HasID   bool

	// Numeric marks the cells of Rows that the workbook stores as numbers.
	Numeric [][]bool

	idCol int
}

// Load opens the workbook at path and reads sheet, or the first sheet when sheet is empty.
func Load(path, sheet string, cols Columns) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer closeFile(f, path)
	return parse(f, sheet, cols)
}

// Read is Load for a workbook that is already in memory or on the wire.
func Read(r io.Reader, sheet string, cols Columns) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer closeFile(f, "<reader>")
	return parse(f, sheet, cols)
}

func closeFile(f *excelize.File, path string) {
	if err := f.Close(); err != nil {
		slog.Error("Error closing workbook",
			slog.String("path", path),
			slog.Any("err", err))
	}
}

func parse(f *excelize.File, sheet string, cols Columns) (*Table, error) {
	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, ErrNoSheet
		}
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptySheet, sheet)
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	xCol := indexOf(header, cols.X)
	if xCol < 0 {
		return nil, fmt.Errorf("%w: %q in sheet %q", ErrColumnNotFound, cols.X, sheet)
	}
	yCol := indexOf(header, cols.Y)
	if yCol < 0 {
		return nil, fmt.Errorf("%w: %q in sheet %q", ErrColumnNotFound, cols.Y, sheet)
	}
	idCol := indexOf(header, cols.ID)

	t := &Table{
		Sheet:   sheet,
		Columns: cols,
		Header:  header,
		HasID:   idCol >= 0,
		idCol:   idCol,
	}
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		// Cells past the last header have no column name and are dropped.
		cells := make([]string, len(header))
		copy(cells, row)

		x, err := parseCoord(cells[xCol])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d column %q: %w", ErrBadCoordinate, i+2, cols.X, err)
		}
		y, err := parseCoord(cells[yCol])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d column %q: %w", ErrBadCoordinate, i+2, cols.Y, err)
		}

		id := strconv.Itoa(len(t.Wells))
		if t.HasID {
			id = strings.TrimSpace(cells[idCol])
		}
		numeric, err := numericCells(f, sheet, i+2, len(header))
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, cells)
		t.Numeric = append(t.Numeric, numeric)
		t.Wells = append(t.Wells, Well{ID: id, Point: orb.Point{x, y}})
	}

	if len(t.Wells) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoWells, sheet)
	}
	return t, nil
}

// Points returns the well coordinates in input order.
func (t *Table) Points() []orb.Point {
	ps := make([]orb.Point, len(t.Wells))
	for i, w := range t.Wells {
		ps[i] = w.Point
	}
	return ps
}

// IDs returns the well row labels in input order.
func (t *Table) IDs() []string {
	ids := make([]string, len(t.Wells))
	for i, w := range t.Wells {
		ids[i] = w.ID
	}
	return ids
}

// NumericID reports whether the identifier of well i is stored as a number.
// Positional identifiers are numbers.
func (t *Table) NumericID(i int) bool {
	if !t.HasID {
		return true
	}
	return t.Numeric[i][t.idCol]
}

// IDHeader is the header used for well labels in derived tables.
func (t *Table) IDHeader() string {
	if t.HasID {
		return t.Columns.ID
	}
	return "Index"
}

// numericCells reports, for the first n cells of a sheet row, whether each is stored as a number.
// Cells without an explicit type are numbers in the workbook format.
func numericCells(f *excelize.File, sheet string, row, n int) ([]bool, error) {
	out := make([]bool, n)
	for c := range n {
		cell, err := excelize.CoordinatesToCellName(c+1, row)
		if err != nil {
			return nil, err
		}
		typ, err := f.GetCellType(sheet, cell)
		if err != nil {
			return nil, fmt.Errorf("reading cell %s: %w", cell, err)
		}
		out[c] = typ == excelize.CellTypeUnset || typ == excelize.CellTypeNumber
	}
	return out, nil
}

func indexOf(header []string, name string) int {
	name = strings.TrimSpace(name)
	if name == "" {
		return -1
	}
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseCoord(val string) (float64, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, errors.New("empty")
	}
	if strings.ContainsAny(val, "xX") {
		return 0, fmt.Errorf("not a decimal number: %q", val)
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not finite: %q", val)
	}
	return f, nil
}
