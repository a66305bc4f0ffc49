package render

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/segtree/pkg/script"
)

const (
	statusOK       = "ok"
	statusFailed   = "failed"
	statusNotFound = "not found"
)

// palette colours status cells. Every field is disabled when colour is off.
type palette struct {
	ok, failed, muted *color.Color
}

func newPalette(useColor bool) palette {
	p := palette{
		ok:     color.New(color.FgGreen),
		failed: color.New(color.FgRed),
		muted:  color.New(color.FgYellow),
	}

	if !useColor {
		p.ok.DisableColor()
		p.failed.DisableColor()
		p.muted.DisableColor()
	} else {
		p.ok.EnableColor()
		p.failed.EnableColor()
		p.muted.EnableColor()
	}

	return p
}

// Table writes one row per step followed by a summary footer.
func Table(w io.Writer, report Report, useColor bool) error {
	p := newPalette(useColor)

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Format.Footer = text.FormatDefault

	if report.Name != "" {
		tbl.SetTitle(report.Name)
	}

	tbl.AppendHeader(table.Row{"#", "op", "target", "result", "previous", "status"})

	for _, res := range report.Results {
		tbl.AppendRow(table.Row{
			res.Step,
			res.Op,
			res.Target,
			resultCell(res),
			FormatValue(res.Previous),
			statusCell(res, p),
		})
	}

	tbl.AppendFooter(table.Row{
		"", "", "",
		fmt.Sprintf("%s %s over %s leaves", humanize.Comma(int64(len(report.Results))), plural(len(report.Results), "step"),
			humanize.Comma(int64(report.Leaves))),
		report.Monoid,
		fmt.Sprintf("%d failed", report.Failures()),
	})

	tbl.Render()

	return nil
}

func resultCell(res script.Result) string {
	if res.Failed() {
		return res.Error
	}

	return FormatValue(res.Value)
}

func statusCell(res script.Result, p palette) string {
	switch {
	case res.Failed():
		return p.failed.Sprint(statusFailed)
	case res.Found != nil && !*res.Found:
		return p.muted.Sprint(statusNotFound)
	default:
		return p.ok.Sprint(statusOK)
	}
}

// FormatValue renders a result value for humans. Strings are quoted so the
// empty concatenation stays visible.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return fmt.Sprintf("%q", val)
	case []string:
		return fmt.Sprintf("%q", val)
	default:
		return fmt.Sprint(val)
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}

	return word + "s"
}
