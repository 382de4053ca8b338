package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jimanjang/Domain-Shared-Contacts-Sync-GData-m8-XML/internal/auth"
	"github.com/jimanjang/Domain-Shared-Contacts-Sync-GData-m8-XML/internal/config"
	"github.com/jimanjang/Domain-Shared-Contacts-Sync-GData-m8-XML/internal/gdata"
	"github.com/jimanjang/Domain-Shared-Contacts-Sync-GData-m8-XML/internal/logging"
	"github.com/jimanjang/Domain-Shared-Contacts-Sync-GData-m8-XML/internal/sheets"
	"github.com/jimanjang/Domain-Shared-Contacts-Sync-GData-m8-XML/internal/syncer"
)

var (
	configPath string
	verbose    bool
	dryRun     bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "contacts-sync",
	Short: "Sync domain shared contacts with a spreadsheet",
	Long: `contacts-sync copies the domain's shared contacts (GData m8 feed) into a
spreadsheet table and deletes directory entries an operator flagged there.

The table's last column (삭제, or "delete") marks rows for deletion:
put "y" or "yes" in it, then run "contacts-sync delete".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch every shared contact and overwrite the table",
	Args:  cobra.NoArgs,
	RunE:  runFetch,
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete directory entries whose rows are flagged",
	Args:  cobra.NoArgs,
	RunE:  runDelete,
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Push edited rows back to the directory (not implemented)",
	Args:  cobra.NoArgs,
	RunE:  runUpdate,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the contacts in the table with their delete marks",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "Path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	deleteCmd.Flags().BoolVar(&dryRun, "dry-run", false, "List flagged rows without deleting anything")

	rootCmd.AddCommand(fetchCmd, deleteCmd, updateCmd, listCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// newSyncer wires config, logging, auth, the directory client and the table.
func newSyncer() (*syncer.Syncer, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err = logging.New(cfg.LogLevel, verbose)
	if err != nil {
		return nil, err
	}

	var tokens auth.TokenSource
	if cfg.AccessToken != "" {
		tokens = auth.Static(cfg.AccessToken)
	} else {
		tokens, err = auth.NewServiceAccount(cfg.CredentialsFile, cfg.AdminEmail, auth.ScopeContacts, auth.ScopeSpreadsheets)
		if err != nil {
			return nil, err
		}
	}

	table := sheets.Open(cfg.TSVFile, cfg.SpreadsheetID, cfg.SheetName, tokens, sheets.WithBatchSize(cfg.WriteBatchSize))
	dir := gdata.NewClient(tokens, logger)

	logger.Debug("configured",
		zap.String("domain", cfg.Domain),
		zap.String("sheet", cfg.SheetName),
		zap.Bool("tsv", cfg.TSVFile != ""))

	return syncer.New(dir, table, cfg.FeedURL(), logger), nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	s, err := newSyncer()
	if err != nil {
		return err
	}

	n, err := s.FetchAndStore(cmd.Context())
	if err != nil {
		logger.Error("fetch and store failed", zap.Error(err))
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d contacts.\n", n)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	s, err := newSyncer()
	if err != nil {
		return err
	}

	report, err := s.DeleteFromSheet(cmd.Context(), dryRun)
	if err != nil {
		logger.Error("delete from sheet failed", zap.Error(err))
		return err
	}

	out := cmd.OutOrStdout()
	if dryRun {
		fmt.Fprintf(out, "%d rows flagged (dry-run: nothing deleted)\n", report.Flagged)
		return nil
	}
	fmt.Fprintf(out, "%d rows scanned, %d flagged, %d deleted, %d failed\n",
		report.Scanned, report.Flagged, report.Deleted, len(report.Failures))
	for _, f := range report.Failures {
		fmt.Fprintf(out, "  row %d: %v\n", f.Row, f.Err)
	}
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	s, err := newSyncer()
	if err != nil {
		return err
	}

	return s.UpdateFromSheet(cmd.Context())
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := newSyncer()
	if err != nil {
		return err
	}

	contacts, err := s.List(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "--- shared contacts (%d) ---\n", len(contacts))
	for _, c := range contacts {
		mark := " "
		if c.DeleteFlag != "" {
			mark = "x"
		}
		email := ""
		if len(c.Emails) > 0 {
			email = c.Emails[0]
		}
		fmt.Fprintf(out, "  [%s] %s <%s> %s\n", mark, displayName(c.FullName, c.Title), email, c.ID)
	}
	return nil
}

func displayName(fullName, title string) string {
	if fullName != "" {
		return fullName
	}
	return title
}
