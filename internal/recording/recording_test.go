package recording

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestDetectLayout(t *testing.T) {
	cases := map[string]Layout{
		"run7_cv_current":           CVCurrentLayout,
		"/data/run7_cv_current.txt": CVCurrentLayout,
		"run7_cv_current.xlsx":      CVCurrentLayout,
		"GC04_FeIII-CN-6.txt":       InstrumentLayout,
		"cv_current_run7":           InstrumentLayout,
	}
	for name, want := range cases {
		if got := DetectLayout(name); got != want {
			t.Fatalf("%s: got=%+v want=%+v", name, got, want)
		}
	}
}

func TestLoadCVCurrentTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace_cv_current")
	data := "0.0 1e-6\n0.5\t2e-6\n\n1.0,3e-6\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Len() != 3 || s.Times[2] != 1.0 || s.Current[1] != 2e-6 {
		t.Fatalf("unexpected series: %+v", s)
	}
}

func TestLoadInstrumentTableSkipsHeader(t *testing.T) {
	var b strings.Builder
	for i := 0; i < InstrumentHeaderRows; i++ {
		fmt.Fprintf(&b, "header line %d: not numeric\n", i)
	}
	for i := 0; i < 4; i++ {
		fmt.Fprintf(&b, "%d %g %g\n", i, float64(i)*1e-6, float64(i)*0.01)
	}
	path := filepath.Join(t.TempDir(), "instrument.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Len() != 4 {
		t.Fatalf("expected 4 samples, got %d", s.Len())
	}
	if s.Times[3] != 0.03 || s.Current[3] != 3e-6 {
		t.Fatalf("expected time from column 2 and current from column 1, got t=%v i=%v", s.Times[3], s.Current[3])
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace_cv_current.csv")
	data := "# exported\n0,1.5\n0.1, 2.5\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Len() != 2 || s.Current[1] != 2.5 {
		t.Fatalf("unexpected series: %+v", s)
	}
}

func TestLoadInstrumentCSVCountsHeaderLikeTable(t *testing.T) {
	var b strings.Builder
	for i := 0; i < InstrumentHeaderRows; i++ {
		switch i {
		case 3:
			b.WriteString("\n")
		case 7:
			b.WriteString("# comment inside header\n")
		case 9:
			b.WriteString("Electrode: 5\" disc, \"glassy\n")
		default:
			fmt.Fprintf(&b, "header line %d\n", i)
		}
	}
	for i := 0; i < 3; i++ {
		fmt.Fprintf(&b, "%d,%d,%g\n", i, 10+i, float64(i)*0.1)
	}
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "instrument.csv")
	txtPath := filepath.Join(dir, "instrument.txt")
	for _, p := range []string{csvPath, txtPath} {
		if err := os.WriteFile(p, []byte(b.String()), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	fromCSV, err := Load(csvPath)
	if err != nil {
		t.Fatalf("load csv: %v", err)
	}
	fromTable, err := Load(txtPath)
	if err != nil {
		t.Fatalf("load table: %v", err)
	}
	if fromCSV.Len() != 3 || fromTable.Len() != 3 {
		t.Fatalf("expected 3 samples from both readers, got csv=%d table=%d", fromCSV.Len(), fromTable.Len())
	}
	for i := 0; i < 3; i++ {
		if fromCSV.Current[i] != fromTable.Current[i] || fromCSV.Times[i] != fromTable.Times[i] {
			t.Fatalf("sample %d differs: csv=(%v,%v) table=(%v,%v)", i,
				fromCSV.Times[i], fromCSV.Current[i], fromTable.Times[i], fromTable.Current[i])
		}
	}
	if fromCSV.Current[0] != 10 {
		t.Fatalf("first data sample lost, got current %v", fromCSV.Current[0])
	}
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace_cv_current.xlsx")
	f := excelize.NewFile()
	for i := 0; i < 5; i++ {
		tc, _ := excelize.CoordinatesToCellName(1, i+1)
		ic, _ := excelize.CoordinatesToCellName(2, i+1)
		f.SetCellValue("Sheet1", tc, float64(i)*0.25)
		f.SetCellValue("Sheet1", ic, float64(i)*-1e-6)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	f.Close()

	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Len() != 5 || s.Times[4] != 1 || s.Current[2] != -2e-6 {
		t.Fatalf("unexpected series: %+v", s)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := Load(filepath.Join(dir, "missing_cv_current")); err == nil {
		t.Fatal("expected error for missing file")
	}

	empty := filepath.Join(dir, "empty_cv_current")
	if err := os.WriteFile(empty, []byte("\n\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(empty); !errors.Is(err, ErrEmptyRecording) {
		t.Fatalf("expected ErrEmptyRecording, got %v", err)
	}

	narrow := filepath.Join(dir, "narrow_cv_current")
	if err := os.WriteFile(narrow, []byte("1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(narrow); err == nil {
		t.Fatal("expected error for a single column")
	}

	bad := filepath.Join(dir, "bad_cv_current")
	if err := os.WriteFile(bad, []byte("0 x\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatal("expected parse error")
	}
}
