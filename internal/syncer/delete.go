package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/jimanjang/Domain-Shared-Contacts-Sync-GData-m8-XML/internal/gdata"
	"github.com/jimanjang/Domain-Shared-Contacts-Sync-GData-m8-XML/internal/model"
	"github.com/jimanjang/Domain-Shared-Contacts-Sync-GData-m8-XML/internal/sheets"
)

// Accepted header names, normalized.
var (
	flagAliases   = []string{model.FlagColumn, "delete"}
	editLinkAlias = "editlink"
)

// RowFailure is one flagged row whose delete did not go through.
type RowFailure struct {
	Row      int // 1-based sheet row
	EditLink string
	Err      error
}

type DeleteReport struct {
	Scanned  int
	Flagged  int
	Deleted  int
	Failures []RowFailure
}

// Err combines the per-row failures, or returns nil.
func (r *DeleteReport) Err() error {
	var err error
	for _, f := range r.Failures {
		err = multierr.Append(err, fmt.Errorf("row %d: %w", f.Row, f.Err))
	}
	return err
}

// Deleter removes directory entries whose rows carry a delete mark.
type Deleter struct {
	dir    Directory
	table  sheets.Table
	logger *zap.Logger
	dryRun bool
}

func NewDeleter(dir Directory, table sheets.Table, logger *zap.Logger, dryRun bool) *Deleter {
	return &Deleter{dir: dir, table: table, logger: logger, dryRun: dryRun}
}

// Run processes rows in sheet order. Header problems are returned before any
// delete is issued; a failed row is logged and recorded in the report and
// does not stop the rows after it.
func (d *Deleter) Run(ctx context.Context) (*DeleteReport, error) {
	values, err := readTable(ctx, d.table)
	if err != nil {
		return nil, err
	}

	normalized := make([]string, len(values[0]))
	for i, h := range values[0] {
		normalized[i] = sheets.NormalizeHeader(h)
	}
	d.logger.Info("delete headers", zap.Strings("headers", normalized))

	idx := sheets.IndexHeader(values[0])
	flagCol, ok := idx.Lookup(flagAliases...)
	if !ok {
		return nil, &ConfigError{Reason: fmt.Sprintf("'%s' or 'delete' column not found", model.FlagColumn)}
	}
	linkCol, ok := idx.Lookup(editLinkAlias)
	if !ok {
		return nil, &ConfigError{Reason: "'EditLink' column not found"}
	}

	report := &DeleteReport{}
	for i, row := range values[1:] {
		rowNum := i + 2
		report.Scanned++

		mark := strings.ToLower(sheets.Cell(row, flagCol))
		d.logger.Info("row delete mark", zap.Int("row", rowNum), zap.String("mark", mark))
		if !isDeleteMark(mark) {
			continue
		}
		report.Flagged++

		editLink := sheets.Cell(row, linkCol)
		log := d.logger.With(zap.Int("row", rowNum), zap.String("edit_link", editLink))
		if editLink == "" {
			log.Error("flagged row has no edit link")
			report.Failures = append(report.Failures, RowFailure{Row: rowNum, Err: errors.New("empty edit link")})
			continue
		}
		if d.dryRun {
			log.Info("would delete contact")
			continue
		}

		log.Info("deleting contact")
		res, err := d.dir.Delete(ctx, editLink)
		if err != nil {
			var fetchErr *gdata.FetchError
			if errors.As(err, &fetchErr) {
				log.Error("delete failed", zap.Int("status", res.StatusCode), zap.String("body", res.Body))
			} else {
				log.Error("delete failed", zap.Error(err))
			}
			report.Failures = append(report.Failures, RowFailure{Row: rowNum, EditLink: editLink, Err: err})
			continue
		}
		log.Info("deleted contact", zap.Int("status", res.StatusCode), zap.String("body", res.Body))
		report.Deleted++
	}

	d.logger.Info("delete from sheet completed",
		zap.Int("scanned", report.Scanned),
		zap.Int("flagged", report.Flagged),
		zap.Int("deleted", report.Deleted),
		zap.Int("failed", len(report.Failures)),
		zap.Error(report.Err()))
	return report, nil
}

func isDeleteMark(mark string) bool {
	return mark == "y" || mark == "yes"
}
