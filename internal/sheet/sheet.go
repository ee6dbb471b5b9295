// Package sheet writes named tables into one workbook.
package sheet

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mawngo/wellsite/internal/atomicfile"
	"github.com/xuri/excelize/v2"
)

var ErrNoSections = errors.New("no sections to write")

// Section is a single worksheet: a header row followed by data rows.
type Section struct {
	Name   string
	Header []string
	Rows   [][]any
}

// Write saves every section as its own worksheet in a new workbook at path.
// The file is written to a temporary sibling and renamed, so path is either replaced whole or left untouched.
func Write(path string, sections ...Section) error {
	if len(sections) == 0 {
		return ErrNoSections
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("Error closing workbook", slog.String("out", path), slog.Any("err", err))
		}
	}()

	for i, s := range sections {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.Name); err != nil {
				return fmt.Errorf("naming sheet %q: %w", s.Name, err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return fmt.Errorf("creating sheet %q: %w", s.Name, err)
		}
		if err := writeSection(f, s); err != nil {
			return fmt.Errorf("writing sheet %q: %w", s.Name, err)
		}
	}
	f.SetActiveSheet(0)

	return save(f, path)
}

func writeSection(f *excelize.File, s Section) error {
	sw, err := f.NewStreamWriter(s.Name)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(s.Header))
	for i, h := range s.Header {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, r := range s.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, r); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func save(f *excelize.File, path string) error {
	return atomicfile.Write(path, func(w io.Writer) error {
		if err := f.Write(w); err != nil {
			return fmt.Errorf("encoding workbook: %w", err)
		}
		return nil
	})
}

// Read returns the raw cell values of every worksheet in the workbook at path, keyed by sheet name.
func Read(path string) (map[string][][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("Error closing workbook", slog.String("path", path), slog.Any("err", err))
		}
	}()

	out := make(map[string][][]string)
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", name, err)
		}
		out[name] = rows
	}
	return out, nil
}
