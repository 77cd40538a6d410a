// Package spreadsheet converts guest lists to and from xlsx workbooks.
package spreadsheet

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"henna-rsvp/internal/models"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/xuri/excelize/v2"
)

const (
	// ExportFileName is the download name of an exported guest list
	ExportFileName = "רשימת_אורחים.xlsx"
	// SheetName of the exported sheet
	SheetName = "אורחים"
)

// Column headers
const (
	HeaderName   = "שם מלא"
	HeaderPhone  = "טלפון"
	HeaderGroup  = "קבוצה"
	HeaderStatus = "סטטוס"
	HeaderCount  = "מספר אורחים"
)

// Status labels
const (
	StatusAttending    = "מגיע/ה"
	StatusNotAttending = "לא מגיע/ה"
	StatusNoResponse   = "לא ענה/תה"
)

var exportColumns = []struct {
	header string
	width  float64
}{
	{HeaderName, 20},
	{HeaderPhone, 15},
	{HeaderGroup, 15},
	{HeaderStatus, 15},
	{HeaderCount, 15},
}

type field int

const (
	fieldID field = iota
	fieldName
	fieldPhone
	fieldGroup
)

var headerFields = map[string]field{
	"id":        fieldID,
	"name":      fieldName,
	"phone":     fieldPhone,
	"group":     fieldGroup,
	HeaderName:  fieldName,
	HeaderPhone: fieldPhone,
	HeaderGroup: fieldGroup,
}

// ParseError means the input is not a readable workbook
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse spreadsheet: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// StatusLabel renders an answer the way the export does
func StatusLabel(a models.Attendance) string {
	switch a {
	case models.Attending:
		return StatusAttending
	case models.NotAttending:
		return StatusNotAttending
	default:
		return StatusNoResponse
	}
}

// Import reads guests from the first sheet of an xlsx workbook. The first
// row is the header; columns are matched by English field name or Hebrew
// label. Every guest starts unanswered, and rows without an id get one.
func Import(ctx context.Context, r io.Reader) ([]models.Guest, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Err: fmt.Errorf("workbook has no sheets")}
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	defer rows.Close()

	var (
		columns map[int]field
		guests  []models.Guest
	)
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cells, err := rows.Columns()
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		if columns == nil {
			if isBlank(cells) {
				continue
			}
			columns = mapHeader(cells)
			continue
		}
		if isBlank(cells) {
			continue
		}

		g, err := rowGuest(columns, cells)
		if err != nil {
			return nil, err
		}
		guests = append(guests, g)
	}
	if err := rows.Error(); err != nil {
		return nil, &ParseError{Err: err}
	}

	return guests, nil
}

// ImportFile is Import over a file on disk
func ImportFile(ctx context.Context, path string) ([]models.Guest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Import(ctx, file)
}

func mapHeader(cells []string) map[int]field {
	columns := make(map[int]field, len(cells))
	for i, cell := range cells {
		key := strings.TrimSpace(cell)
		if f, ok := headerFields[key]; ok {
			columns[i] = f
			continue
		}
		if f, ok := headerFields[strings.ToLower(key)]; ok {
			columns[i] = f
		}
	}
	return columns
}

func rowGuest(columns map[int]field, cells []string) (models.Guest, error) {
	var g models.Guest
	for i, f := range columns {
		if i >= len(cells) {
			continue
		}
		value := strings.TrimSpace(cells[i])
		switch f {
		case fieldID:
			g.ID = value
		case fieldName:
			g.Name = value
		case fieldPhone:
			g.Phone = value
		case fieldGroup:
			g.Group = value
		}
	}
	if g.ID == "" {
		id, err := gonanoid.New(16)
		if err != nil {
			return models.Guest{}, fmt.Errorf("failed to generate id: %w", err)
		}
		g.ID = "guest" + id
	}
	g.ResetRSVP()
	return g, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Export writes guests as a single sheet workbook
func Export(w io.Writer, guests []models.Guest) error {
	f, err := build(guests)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ExportFile saves the workbook at path
func ExportFile(path string, guests []models.Guest) error {
	f, err := build(guests)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func build(guests []models.Guest) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(exportColumns))
	for i, col := range exportColumns {
		header[i] = col.header
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetColWidth(SheetName, name, name, col.width); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, g := range guests {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		row := []interface{}{
			g.Name,
			g.Phone,
			g.Group,
			StatusLabel(g.Attending),
			g.NumberOfGuests,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	rtl := true
	if err := f.SetSheetView(SheetName, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set sheet view: %w", err)
	}

	return f, nil
}
