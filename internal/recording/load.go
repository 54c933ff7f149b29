package recording

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"ecfit/internal/conditioning"
)

// Load reads a recording, choosing the reader from the file extension and
// the column layout from the file name.
func Load(path string) (conditioning.Series, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return conditioning.Series{}, fmt.Errorf("recording path is required")
	}
	layout := DetectLayout(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return LoadXLSX(path, layout)
	case ".csv":
		return LoadCSV(path, layout)
	default:
		f, err := os.Open(path)
		if err != nil {
			return conditioning.Series{}, fmt.Errorf("open recording %s: %w", path, err)
		}
		defer f.Close()
		return ReadTable(f, layout, filepath.Base(path))
	}
}

// ReadTable parses a whitespace or comma separated numeric table.
func ReadTable(r io.Reader, layout Layout, source string) (conditioning.Series, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var rows [][]string
	for scanner.Scan() {
		rows = append(rows, strings.FieldsFunc(scanner.Text(), func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == ';'
		}))
	}
	if err := scanner.Err(); err != nil {
		return conditioning.Series{}, fmt.Errorf("read %s: %w", source, err)
	}
	return rowsToSeries(rows, layout, source)
}

// LoadCSV reads a comma separated recording. Header rows are skipped as raw
// lines before the CSV reader sees them, so blank or quoted header text
// counts the same as in a plain table.
func LoadCSV(path string, layout Layout) (conditioning.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return conditioning.Series{}, fmt.Errorf("open recording csv %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if err := skipLines(br, layout.SkipRows); err != nil {
		return conditioning.Series{}, fmt.Errorf("read recording csv header %s: %w", path, err)
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return conditioning.Series{}, fmt.Errorf("read recording csv row %d: %w", layout.SkipRows+len(rows)+1, err)
		}
		rows = append(rows, record)
	}
	body := layout
	body.SkipRows = 0
	return rowsToSeries(rows, body, filepath.Base(path))
}

// skipLines consumes n raw lines. A file shorter than n lines is left empty.
func skipLines(r *bufio.Reader, n int) error {
	for i := 0; i < n; i++ {
		if _, err := r.ReadString('\n'); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
	return nil
}

// LoadXLSX reads the first sheet of a workbook.
func LoadXLSX(path string, layout Layout) (conditioning.Series, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return conditioning.Series{}, fmt.Errorf("open recording workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return conditioning.Series{}, fmt.Errorf("%w: %s has no sheets", ErrEmptyRecording, path)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return conditioning.Series{}, fmt.Errorf("read sheet %s of %s: %w", sheets[0], path, err)
	}
	return rowsToSeries(rows, layout, filepath.Base(path)+":"+sheets[0])
}
