package syncer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jimanjang/Domain-Shared-Contacts-Sync-GData-m8-XML/internal/model"
	"github.com/jimanjang/Domain-Shared-Contacts-Sync-GData-m8-XML/internal/sheets"
)

// Store keeps the contacts table in step with the directory.
type Store struct {
	table  sheets.Table
	logger *zap.Logger
}

func NewStore(table sheets.Table, logger *zap.Logger) *Store {
	return &Store{table: table, logger: logger}
}

// Replace makes the table hold exactly contacts, in order, under the fixed
// header. The delete flag column is always written empty.
func (s *Store) Replace(ctx context.Context, contacts []model.Contact) error {
	rows := make([][]string, 0, len(contacts)+1)
	rows = append(rows, model.Header)
	for _, c := range contacts {
		c.DeleteFlag = ""
		rows = append(rows, c.Row())
	}

	if err := s.table.Overwrite(ctx, rows); err != nil {
		return fmt.Errorf("write contacts table: %w", err)
	}

	s.logger.Info("wrote contacts", zap.Int("count", len(contacts)))
	return nil
}

// Load reads the table back into contacts, keyed by header name so columns
// an operator reordered or added are tolerated. Cell values come back with
// surrounding whitespace trimmed; the table itself is not modified.
func (s *Store) Load(ctx context.Context) ([]model.Contact, error) {
	values, err := readTable(ctx, s.table)
	if err != nil {
		return nil, err
	}

	idx := sheets.IndexHeader(values[0])
	col := func(name string) int {
		i, _ := idx.Lookup(name)
		return i
	}
	flag, _ := idx.Lookup(model.FlagColumn, "delete")

	contacts := make([]model.Contact, 0, len(values)-1)
	for _, row := range values[1:] {
		contacts = append(contacts, model.Contact{
			ID:            sheets.Cell(row, col("id")),
			EditLink:      sheets.Cell(row, col("editlink")),
			Title:         sheets.Cell(row, col("title")),
			FullName:      sheets.Cell(row, col("full name")),
			GivenName:     sheets.Cell(row, col("given name")),
			FamilyName:    sheets.Cell(row, col("family name")),
			Emails:        model.SplitList(sheets.Cell(row, col("emails"))),
			Phones:        model.SplitList(sheets.Cell(row, col("phones"))),
			Organizations: model.SplitList(sheets.Cell(row, col("organizations"))),
			Addresses:     model.SplitList(sheets.Cell(row, col("addresses"))),
			Birthday:      sheets.Cell(row, col("birthday")),
			Websites:      model.SplitList(sheets.Cell(row, col("websites"))),
			Note:          sheets.Cell(row, col("note")),
			DeleteFlag:    sheets.Cell(row, flag),
		})
	}
	return contacts, nil
}

// readTable returns the table's rows, turning a missing sheet or header
// into a ConfigError.
func readTable(ctx context.Context, table sheets.Table) ([][]string, error) {
	values, err := table.Values(ctx)
	if errors.Is(err, sheets.ErrSheetNotFound) {
		return nil, &ConfigError{Reason: err.Error()}
	}
	if err != nil {
		return nil, fmt.Errorf("read contacts table: %w", err)
	}
	if len(values) == 0 {
		return nil, &ConfigError{Reason: "contacts table has no header row"}
	}
	return values, nil
}
