package stats

import (
	"fmt"
	"image/color"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	traceWorkbookFile = "trace.xlsx"
	tracePlotFile     = "trace.png"
)

// WriteTraceWorkbook writes trace.xlsx into runDir with three sheets: the
// trace, the best-fit parameters and the per-round error history.
func WriteTraceWorkbook(runDir string, artifacts RunArtifacts) (string, error) {
	if err := artifacts.Trace.validate(); err != nil {
		return "", err
	}
	f := excelize.NewFile()
	defer f.Close()

	const traceSheet = "trace"
	if err := f.SetSheetName("Sheet1", traceSheet); err != nil {
		return "", err
	}
	for col, name := range traceHeader {
		if err := setCell(f, traceSheet, col+1, 1, name); err != nil {
			return "", err
		}
	}
	trace := artifacts.Trace
	for i := range trace.Times {
		row := i + 2
		for col, v := range []float64{trace.Times[i], trace.Measured[i], trace.Simulated[i]} {
			if err := setCell(f, traceSheet, col+1, row, v); err != nil {
				return "", err
			}
		}
	}

	const paramSheet = "params"
	if _, err := f.NewSheet(paramSheet); err != nil {
		return "", err
	}
	if err := setCell(f, paramSheet, 1, 1, "name"); err != nil {
		return "", err
	}
	if err := setCell(f, paramSheet, 2, 1, "value"); err != nil {
		return "", err
	}
	names := make([]string, 0, len(artifacts.BestParams))
	for name := range artifacts.BestParams {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		if err := setCell(f, paramSheet, 1, i+2, name); err != nil {
			return "", err
		}
		if err := setCell(f, paramSheet, 2, i+2, artifacts.BestParams[name]); err != nil {
			return "", err
		}
	}

	const historySheet = "history"
	if _, err := f.NewSheet(historySheet); err != nil {
		return "", err
	}
	if err := setCell(f, historySheet, 1, 1, "round"); err != nil {
		return "", err
	}
	if err := setCell(f, historySheet, 2, 1, "error"); err != nil {
		return "", err
	}
	for i, v := range artifacts.ErrorHistory {
		if err := setCell(f, historySheet, 1, i+2, i+1); err != nil {
			return "", err
		}
		if err := setCell(f, historySheet, 2, i+2, v); err != nil {
			return "", err
		}
	}

	path := filepath.Join(runDir, traceWorkbookFile)
	if err := f.SaveAs(path); err != nil {
		return "", err
	}
	return path, nil
}

func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}

// WriteTracePlot renders measured and simulated current against time into
// trace.png in runDir.
func WriteTracePlot(runDir, title string, trace Trace) (string, error) {
	if err := trace.validate(); err != nil {
		return "", err
	}
	if len(trace.Times) == 0 {
		return "", fmt.Errorf("trace is empty")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time (nondimensional)"
	p.Y.Label.Text = "current (nondimensional)"
	p.Add(plotter.NewGrid())

	measured, err := plotter.NewLine(xys(trace.Times, trace.Measured))
	if err != nil {
		return "", fmt.Errorf("measured series: %w", err)
	}
	measured.LineStyle.Color = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	measured.LineStyle.Width = vg.Points(1)

	simulated, err := plotter.NewLine(xys(trace.Times, trace.Simulated))
	if err != nil {
		return "", fmt.Errorf("simulated series: %w", err)
	}
	simulated.LineStyle.Color = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	simulated.LineStyle.Width = vg.Points(1)
	simulated.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(measured, simulated)
	p.Legend.Add("measured", measured)
	p.Legend.Add("simulated", simulated)
	p.Legend.Top = true

	path := filepath.Join(runDir, tracePlotFile)
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return "", err
	}
	return path, nil
}

func xys(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i].X = x[i]
		pts[i].Y = y[i]
	}
	return pts
}
