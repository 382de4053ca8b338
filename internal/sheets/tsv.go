package sheets

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// TSVTable keeps the table in a local tab-separated file, for offline runs
// and for sheets exported from the spreadsheet UI.
type TSVTable struct {
	path string
}

func NewTSV(path string) *TSVTable {
	return &TSVTable{path: path}
}

func (t *TSVTable) Values(context.Context) ([][]string, error) {
	data, err := os.ReadFile(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, t.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read TSV file: %w", err)
	}

	// Exports often carry a UTF-8 BOM that would otherwise end up in the first header cell.
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	values, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse TSV: %w", err)
	}
	return values, nil
}

func (t *TSVTable) Overwrite(_ context.Context, rows [][]string) error {
	f, err := os.Create(t.path)
	if err != nil {
		return fmt.Errorf("create TSV file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return fmt.Errorf("write TSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write TSV: %w", err)
	}
	return f.Close()
}
