package spreadsheet

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"henna-rsvp/internal/models"

	"github.com/xuri/excelize/v2"
)

// workbook builds an xlsx file from rows of the first sheet
func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return &buf
}

func TestImportHebrewHeaders(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{HeaderName, HeaderPhone, HeaderGroup},
		{"Dana", "050-1111111", "Friends"},
		{"", "", ""},
		{"Avi", "050-2222222"},
	})

	guests, err := Import(context.Background(), buf)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(guests) != 2 {
		t.Fatalf("expected 2 guests, got %d", len(guests))
	}

	dana := guests[0]
	if dana.Name != "Dana" || dana.Phone != "050-1111111" || dana.Group != "Friends" {
		t.Fatalf("unexpected first guest %+v", dana)
	}
	if dana.Attending != models.NoResponse || dana.NumberOfGuests != 1 || dana.Answered {
		t.Fatalf("imported guest should start unanswered: %+v", dana)
	}
	if guests[1].Group != "" {
		t.Fatalf("missing cell should be empty, got %q", guests[1].Group)
	}
	if dana.ID == "" || dana.ID == guests[1].ID {
		t.Fatalf("expected distinct generated ids, got %q and %q", dana.ID, guests[1].ID)
	}
}

func TestImportEnglishHeadersKeepsIDs(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"ID", "Name", "Phone"},
		{"g1", "Dana", "050-1111111"},
	})

	guests, err := Import(context.Background(), buf)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(guests) != 1 {
		t.Fatalf("expected 1 guest, got %d", len(guests))
	}
	if guests[0].ID != "g1" || guests[0].Name != "Dana" || guests[0].Group != "" {
		t.Fatalf("unexpected guest %+v", guests[0])
	}
}

func TestImportRejectsNonWorkbook(t *testing.T) {
	_, err := Import(context.Background(), strings.NewReader("name,phone\nDana,050\n"))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestImportHonorsCancellation(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{HeaderName},
		{"Dana"},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Import(ctx, buf); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExportLayout(t *testing.T) {
	var buf bytes.Buffer
	err := Export(&buf, []models.Guest{
		{ID: "a", Name: "Dana", Phone: "050-1111111", Group: "Friends", Attending: models.Attending, NumberOfGuests: 3, Answered: true},
		{ID: "b", Name: "Avi", Phone: "050-2222222", Group: "Family", Attending: models.NotAttending, Answered: true},
		{ID: "c", Name: "Noa", Phone: "050-3333333", NumberOfGuests: 1},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open exported: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 1 || sheets[0] != SheetName {
		t.Fatalf("unexpected sheets %v", sheets)
	}
	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	wantHeader := []string{HeaderName, HeaderPhone, HeaderGroup, HeaderStatus, HeaderCount}
	for i, h := range wantHeader {
		if rows[0][i] != h {
			t.Fatalf("header[%d] = %q, want %q", i, rows[0][i], h)
		}
	}
	statuses := []string{rows[1][3], rows[2][3], rows[3][3]}
	want := []string{StatusAttending, StatusNotAttending, StatusNoResponse}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("status[%d] = %q, want %q", i, statuses[i], want[i])
		}
	}
	if rows[1][4] != "3" || rows[2][4] != "0" {
		t.Fatalf("unexpected counts %q %q", rows[1][4], rows[2][4])
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	original := []models.Guest{
		{ID: "a", Name: "דניאל כהן", Phone: "052-1234567", Group: "משפחה", Attending: models.Attending, NumberOfGuests: 2, Answered: true},
		{ID: "b", Name: "Avi", Phone: "054-7654321", Group: ""},
		{ID: "c", Name: "Noa", Phone: "", Group: "עבודה", Attending: models.NotAttending, Answered: true},
	}

	var first bytes.Buffer
	if err := Export(&first, original); err != nil {
		t.Fatalf("export: %v", err)
	}
	imported, err := Import(context.Background(), &first)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	var second bytes.Buffer
	if err := Export(&second, imported); err != nil {
		t.Fatalf("re-export: %v", err)
	}
	again, err := Import(context.Background(), &second)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}

	if len(again) != len(original) {
		t.Fatalf("expected %d guests, got %d", len(original), len(again))
	}
	for i, g := range original {
		got := again[i]
		if got.Name != g.Name || got.Phone != g.Phone || got.Group != g.Group {
			t.Fatalf("guest %d: got %+v, want name/phone/group of %+v", i, got, g)
		}
	}
}

func TestExportFileAndImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ExportFileName)
	guests := []models.Guest{{ID: "a", Name: "Dana", Phone: "050-1111111", Group: "Friends"}}

	if err := ExportFile(path, guests); err != nil {
		t.Fatalf("export file: %v", err)
	}
	got, err := ImportFile(context.Background(), path)
	if err != nil {
		t.Fatalf("import file: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Dana" {
		t.Fatalf("unexpected guests %+v", got)
	}
}
