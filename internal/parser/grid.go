package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

// Grid is one sheet's raw cells, header undiscovered.
type Grid struct {
	SheetName string
	Rows      [][]string
}

// ReadTable loads raw spreadsheet bytes into per-sheet grids. Supported
// formats: .xlsx, .ods, .csv. Empty sheets are skipped.
func ReadTable(data []byte, filename string) ([]Grid, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xlsx":
		return readXLSX(data)
	case ".ods":
		return readODS(data)
	case ".csv":
		return readCSV(data, filename)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
}

func readXLSX(data []byte) ([]Grid, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, err
	}

	var grids []Grid
	for _, sheet := range f.Sheets {
		var rows [][]string
		for _, row := range sheet.Rows {
			cells := make([]string, len(row.Cells))
			for i, cell := range row.Cells {
				cells[i] = cell.String()
			}
			rows = append(rows, cells)
		}
		if !gridEmpty(rows) {
			grids = append(grids, Grid{SheetName: sheet.Name, Rows: rows})
		}
	}
	return grids, nil
}

func readODS(data []byte) ([]Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var grids []Grid
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		if !gridEmpty(rows) {
			grids = append(grids, Grid{SheetName: sheetName, Rows: rows})
		}
	}
	return grids, nil
}

func readCSV(data []byte, filename string) ([]Grid, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // ragged rows are normal in exported reports
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if gridEmpty(rows) {
		return nil, nil
	}
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return []Grid{{SheetName: name, Rows: rows}}, nil
}

func gridEmpty(rows [][]string) bool {
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				return false
			}
		}
	}
	return true
}
