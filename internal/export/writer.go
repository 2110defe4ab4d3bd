// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/mp-export/pkg/types"
)

// Sink receives the header and rows of one export.
type Sink interface {
	WriteRow(cells []string) error
	Close() error
}

// TSVWriter writes tab-separated lines. With trailingTab every cell is
// followed by a tab, so lines end in "\t\n"; otherwise cells are only
// separated by tabs.
type TSVWriter struct {
	w           *bufio.Writer
	closer      io.Closer
	trailingTab bool
}

// NewTSV wraps w. Close flushes but does not close w.
func NewTSV(w io.Writer, trailingTab bool) *TSVWriter {
	return &TSVWriter{w: bufio.NewWriter(w), trailingTab: trailingTab}
}

// CreateTSV creates path, including missing parent directories.
func CreateTSV(path string, trailingTab bool) (*TSVWriter, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	t := NewTSV(f, trailingTab)
	t.closer = f
	return t, nil
}

// WriteRow writes one line.
func (t *TSVWriter) WriteRow(cells []string) error {
	for i, c := range cells {
		if i > 0 && !t.trailingTab {
			if err := t.w.WriteByte('\t'); err != nil {
				return err
			}
		}
		if _, err := t.w.WriteString(c); err != nil {
			return err
		}
		if t.trailingTab {
			if err := t.w.WriteByte('\t'); err != nil {
				return err
			}
		}
	}
	return t.w.WriteByte('\n')
}

// Close flushes buffered output and closes the file if CreateTSV opened it.
func (t *TSVWriter) Close() error {
	if err := t.w.Flush(); err != nil {
		if t.closer != nil {
			t.closer.Close()
		}
		return fmt.Errorf("flushing output: %w", err)
	}
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// XLSXWriter writes rows into a single worksheet. Cells that parse as
// finite numbers are stored as numbers; everything else, NA included, as text.
type XLSXWriter struct {
	f     *excelize.File
	sheet string
	path  string
	row   int
}

// CreateXLSX starts a workbook that Close saves to path.
func CreateXLSX(path, sheet string) (*XLSXWriter, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	if sheet != "" {
		if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("naming sheet: %w", err)
		}
	}
	return &XLSXWriter{f: f, sheet: f.GetSheetName(0), path: path}, nil
}

// WriteRow appends one row.
func (x *XLSXWriter) WriteRow(cells []string) error {
	x.row++
	values := make([]any, len(cells))
	for i, c := range cells {
		if x.row > 1 {
			if n, err := strconv.ParseFloat(c, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
				values[i] = n
				continue
			}
		}
		values[i] = c
	}
	cell, err := excelize.CoordinatesToCellName(1, x.row)
	if err != nil {
		return err
	}
	return x.f.SetSheetRow(x.sheet, cell, &values)
}

// Close saves the workbook.
func (x *XLSXWriter) Close() error {
	defer x.f.Close()
	if err := x.f.SaveAs(x.path); err != nil {
		return fmt.Errorf("saving %s: %w", x.path, err)
	}
	return nil
}

// Create opens the sink for format at path.
func Create(format types.OutputFormat, path, sheet string, trailingTab bool) (Sink, error) {
	switch format {
	case types.OutputTSV, "":
		return CreateTSV(path, trailingTab)
	case types.OutputXLSX:
		return CreateXLSX(path, sheet)
	default:
		return nil, fmt.Errorf("unsupported format %q: use tsv or xlsx", format)
	}
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
