// Package syncer runs the three operator entry points: fetch-and-store,
// delete-from-sheet and update-from-sheet.
package syncer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jimanjang/Domain-Shared-Contacts-Sync-GData-m8-XML/internal/gdata"
	"github.com/jimanjang/Domain-Shared-Contacts-Sync-GData-m8-XML/internal/model"
	"github.com/jimanjang/Domain-Shared-Contacts-Sync-GData-m8-XML/internal/sheets"
)

// Directory is the shared contacts directory; *gdata.Client implements it.
type Directory interface {
	Contacts(ctx context.Context, feedURL string) ([]model.Contact, error)
	Delete(ctx context.Context, editLink string) (gdata.DeleteResult, error)
}

type Syncer struct {
	dir     Directory
	table   sheets.Table
	store   *Store
	feedURL string
	logger  *zap.Logger
}

func New(dir Directory, table sheets.Table, feedURL string, logger *zap.Logger) *Syncer {
	return &Syncer{
		dir:     dir,
		table:   table,
		store:   NewStore(table, logger),
		feedURL: feedURL,
		logger:  logger,
	}
}

// FetchAndStore pulls the whole directory and overwrites the table with it.
// Nothing is written unless every page and entry was read successfully.
func (s *Syncer) FetchAndStore(ctx context.Context) (int, error) {
	contacts, err := s.dir.Contacts(ctx, s.feedURL)
	if err != nil {
		return 0, fmt.Errorf("fetch shared contacts: %w", err)
	}
	if err := s.store.Replace(ctx, contacts); err != nil {
		return 0, err
	}
	return len(contacts), nil
}

// DeleteFromSheet deletes every flagged row's directory entry. With dryRun
// the flagged rows are only logged.
func (s *Syncer) DeleteFromSheet(ctx context.Context, dryRun bool) (*DeleteReport, error) {
	return NewDeleter(s.dir, s.table, s.logger, dryRun).Run(ctx)
}

// UpdateFromSheet would push edited sheet fields back to the directory. Its
// behavior has never been defined, so it only reports that.
func (s *Syncer) UpdateFromSheet(context.Context) error {
	s.logger.Info("update from sheet started")
	s.logger.Warn("update from sheet is not implemented")
	return ErrNotImplemented
}

// List reads the table back as contacts, delete marks included.
func (s *Syncer) List(ctx context.Context) ([]model.Contact, error) {
	return s.store.Load(ctx)
}
