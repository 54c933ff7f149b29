package recording

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"ecfit/internal/conditioning"
)

// CVCurrentSuffix marks exported traces stored as plain (time, current)
// columns without an instrument header.
const CVCurrentSuffix = "_cv_current"

// InstrumentHeaderRows is the header length of raw instrument files.
const InstrumentHeaderRows = 19

var ErrEmptyRecording = errors.New("recording: no samples")

// Layout says where a table keeps its samples.
type Layout struct {
	SkipRows      int
	TimeColumn    int
	CurrentColumn int
}

var (
	CVCurrentLayout  = Layout{SkipRows: 0, TimeColumn: 0, CurrentColumn: 1}
	InstrumentLayout = Layout{SkipRows: InstrumentHeaderRows, TimeColumn: 2, CurrentColumn: 1}
)

// DetectLayout picks the layout from a source name. The suffix is checked on
// the base name with any .txt, .dat, .csv or .xlsx extension removed.
func DetectLayout(name string) Layout {
	if strings.HasSuffix(stem(name), CVCurrentSuffix) {
		return CVCurrentLayout
	}
	return InstrumentLayout
}

func stem(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	switch strings.ToLower(filepath.Ext(base)) {
	case ".txt", ".dat", ".csv", ".xlsx":
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return base
}

func (l Layout) width() int {
	if l.TimeColumn > l.CurrentColumn {
		return l.TimeColumn + 1
	}
	return l.CurrentColumn + 1
}

// rowsToSeries applies layout to already split rows. Rows inside the header
// are ignored, as are blank rows and rows starting with '#'.
func rowsToSeries(rows [][]string, layout Layout, source string) (conditioning.Series, error) {
	var s conditioning.Series
	for i, row := range rows {
		if i < layout.SkipRows {
			continue
		}
		if len(row) == 0 || strings.HasPrefix(strings.TrimSpace(row[0]), "#") {
			continue
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) < layout.width() {
			return conditioning.Series{}, fmt.Errorf("%s row %d: expected at least %d columns, got %d", source, i+1, layout.width(), len(row))
		}
		t, err := strconv.ParseFloat(strings.TrimSpace(row[layout.TimeColumn]), 64)
		if err != nil {
			return conditioning.Series{}, fmt.Errorf("parse %s row %d time: %w", source, i+1, err)
		}
		c, err := strconv.ParseFloat(strings.TrimSpace(row[layout.CurrentColumn]), 64)
		if err != nil {
			return conditioning.Series{}, fmt.Errorf("parse %s row %d current: %w", source, i+1, err)
		}
		s.Times = append(s.Times, t)
		s.Current = append(s.Current, c)
	}
	if s.Len() == 0 {
		return conditioning.Series{}, fmt.Errorf("%w: %s", ErrEmptyRecording, source)
	}
	return s, nil
}
