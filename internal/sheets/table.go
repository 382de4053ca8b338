package sheets

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jimanjang/Domain-Shared-Contacts-Sync-GData-m8-XML/internal/auth"
)

// ErrSheetNotFound is returned by Values when the named sheet does not exist.
var ErrSheetNotFound = errors.New("sheet not found")

// Table is a rectangular string grid whose first row is the header.
type Table interface {
	// Values returns every row, header included. Trailing empty cells may be
	// omitted by the backend.
	Values(ctx context.Context) ([][]string, error)
	// Overwrite creates the table if needed, erases it and writes rows from
	// the top. A failure part way leaves the rows written so far.
	Overwrite(ctx context.Context, rows [][]string) error
}

// Open returns the local TSV backend when tsvFile is set, the Sheets API
// backend otherwise.
func Open(tsvFile, spreadsheetID, sheetName string, tokens auth.TokenSource, opts ...Option) Table {
	if tsvFile != "" {
		return NewTSV(tsvFile)
	}
	return New(tokens, spreadsheetID, sheetName, opts...)
}

// NormalizeHeader folds a header cell for lookup: NFC, trimmed, lowercase.
func NormalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

// HeaderIndex maps normalized header names to column positions. The first
// occurrence of a duplicated name wins.
type HeaderIndex map[string]int

func IndexHeader(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := NormalizeHeader(h)
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// Lookup returns the column of the first name present.
func (h HeaderIndex) Lookup(names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := h[NormalizeHeader(n)]; ok {
			return i, true
		}
	}
	return -1, false
}

// Cell returns the trimmed cell, or "" when idx is out of range.
func Cell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}
