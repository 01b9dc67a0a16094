// Package export writes award lists to spreadsheets.
package export

import (
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/awards-cli/internal/model"
)

// SheetName is the worksheet holding exported awards.
const SheetName = "Awards"

// Header is the first row of an export.
var Header = []string{
	"ID", "Brand", "Title", "Event Date", "Nomination Opens", "Nomination Closes", "Status", "Page", "Image",
}

// Build creates a workbook with one row per award, in list order. Status
// is the nomination state at now.
func Build(awards []model.Award, now time.Time) (*xlsx.File, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return nil, eris.Wrap(err, "export: add sheet")
	}

	addRow(sheet, Header)
	for _, a := range awards {
		addRow(sheet, []string{
			a.ID,
			a.Brand,
			a.Title,
			a.FieldDate,
			deref(a.StartDate),
			deref(a.EndDate),
			string(a.SubmissionStatus(now)),
			a.ViewNode,
			a.Image,
		})
	}
	return f, nil
}

// WriteXLSX writes the awards workbook to w.
func WriteXLSX(w io.Writer, awards []model.Award, now time.Time) error {
	f, err := Build(awards, now)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

// SaveXLSX writes the awards workbook to path.
func SaveXLSX(path string, awards []model.Award, now time.Time) error {
	f, err := Build(awards, now)
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
