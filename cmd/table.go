package main

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/sells-group/awards-cli/internal/model"
)

const maxTitleWidth = 48

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	return tw
}

// renderAwards writes awards as a table with their nomination status at
// the time of rendering.
func renderAwards(w io.Writer, awards []model.Award, status func(model.Award) model.SubmissionStatus) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Date", "Brand", "Title", "Nominations", "Image"})
	for _, a := range awards {
		date := a.FieldDate
		if len(date) > 10 {
			date = date[:10]
		}
		image := ""
		if a.Image != "" {
			image = "yes"
		}
		tw.AppendRow(table.Row{date, a.Brand, truncate(a.Title, maxTitleWidth), status(a), image})
	}
	tw.AppendFooter(table.Row{"", "", "", "Total", len(awards)})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	tw.Render()
}

// renderBrands writes brands as a table.
func renderBrands(w io.Writer, brands []model.Brand) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Brand", "Name", "URL"})
	for _, b := range brands {
		tw.AppendRow(table.Row{b.ID, b.DisplayName, b.BaseURL})
	}
	tw.Render()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
