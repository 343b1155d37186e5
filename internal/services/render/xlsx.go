package render

import (
	"fmt"
	"io"

	dsvc "PlantDash/internal/domain/service"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook.
const (
	SheetHourly     = "Hourly"
	SheetMinutes    = "Minutes"
	SheetThresholds = "Thresholds"
)

// XLSX exports the current bundle as a workbook.
type XLSX struct{}

// NewXLSX creates the workbook renderer.
func NewXLSX() *XLSX { return &XLSX{} }

func (r *XLSX) Name() string { return "xlsx" }
func (r *XLSX) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (r *XLSX) Render(w io.Writer, view dsvc.DashboardView) error {
	b := view.Bundle
	if b == nil {
		return ErrNoData
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetHourly); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetMinutes, SheetThresholds} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	h := b.Hourly
	rows := make([][]interface{}, 0, h.Len())
	for i := range h.Labels {
		rows = append(rows, []interface{}{h.Labels[i], h.Weights[i], h.Averages[i], h.Water[i]})
	}
	if err := writeTable(f, SheetHourly, header, []string{"hour", "weight", "average", "water"}, rows); err != nil {
		return err
	}

	m := b.Minutes
	rows = make([][]interface{}, 0, m.Len())
	for i := range m.Labels {
		rows = append(rows, []interface{}{m.Labels[i], m.Weights[i]})
	}
	if err := writeTable(f, SheetMinutes, header, []string{"minute", "weight"}, rows); err != nil {
		return err
	}

	keys := stationKeys(b.Config)
	rows = make([][]interface{}, 0, len(h.Thresholds)+3+len(keys))
	for _, l := range h.Thresholds {
		rows = append(rows, []interface{}{"line", l.Label, l.Value, l.Color})
	}
	rows = append(rows,
		[]interface{}{"axis", "water", h.WaterAxis.Min, h.WaterAxis.Max},
		[]interface{}{"axis", "weight", h.WeightAxis.Min, h.WeightAxis.Max},
		[]interface{}{"averaging", string(b.Averaging), nil, nil},
	)
	for _, k := range keys {
		rows = append(rows, []interface{}{"station", k.Name, k.Value, nil})
	}
	if err := writeTable(f, SheetThresholds, header, []string{"kind", "name", "value", "extra"}, rows); err != nil {
		return err
	}

	if n := h.Len(); n > 0 {
		if err := addHourlyChart(f, n); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeTable(f *excelize.File, sheet string, header int, cols []string, rows [][]interface{}) error {
	for i, name := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return fmt.Errorf("%s header: %w", sheet, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, header); err != nil {
			return fmt.Errorf("%s header style: %w", sheet, err)
		}
	}
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("%s row %d: %w", sheet, r+2, err)
			}
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("%s panes: %w", sheet, err)
	}
	return nil
}

func addHourlyChart(f *excelize.File, n int) error {
	last := n + 1
	cats := fmt.Sprintf("%s!$A$2:$A$%d", SheetHourly, last)
	series := make([]excelize.ChartSeries, 0, 2)
	for _, col := range []string{"B", "C"} {
		series = append(series, excelize.ChartSeries{
			Name:       fmt.Sprintf("%s!$%s$1", SheetHourly, col),
			Categories: cats,
			Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", SheetHourly, col, col, last),
		})
	}
	err := f.AddChart(SheetHourly, "F2", &excelize.Chart{
		Type:      excelize.Line,
		Series:    series,
		Title:     []excelize.RichTextRun{{Text: "Plant weight"}},
		Legend:    excelize.ChartLegend{Position: "bottom"},
		Dimension: excelize.ChartDimension{Width: 720, Height: 320},
	})
	if err != nil {
		return fmt.Errorf("hourly chart: %w", err)
	}
	return nil
}
