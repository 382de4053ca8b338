package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"

	"github.com/jimanjang/Domain-Shared-Contacts-Sync-GData-m8-XML/internal/gdata"
)

type Config struct {
	SpreadsheetID   string `json:"spreadsheet_id"`
	SheetName       string `json:"sheet_name"`
	TSVFile         string `json:"tsv_file"`
	CredentialsFile string `json:"credentials_file"`
	AccessToken     string `json:"access_token"`
	AdminEmail      string `json:"admin_email"` // operator; the domain defaults to its host part
	Domain          string `json:"domain"`
	FeedBase        string `json:"feed_base"`
	MaxResults      int    `json:"max_results"`
	WriteBatchSize  int    `json:"write_batch_size"`
	LogLevel        string `json:"log_level"`
}

// Load reads the config file (JSON, comments allowed), then applies a .env
// file and CONTACTS_SYNC_* environment variables on top. A missing config
// file is fine when the environment supplies everything.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		SheetName:  "list",
		FeedBase:   gdata.DefaultFeedBase,
		MaxResults: gdata.DefaultMaxResults,
		LogLevel:   "info",
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if cfg.Domain == "" {
		if _, host, ok := strings.Cut(cfg.AdminEmail, "@"); ok {
			cfg.Domain = host
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FeedURL is the first page of the domain's shared contacts feed.
func (c *Config) FeedURL() string {
	return gdata.FeedURL(c.FeedBase, c.Domain, c.MaxResults)
}

func (c *Config) applyEnvOverrides() {
	for env, field := range map[string]*string{
		"CONTACTS_SYNC_SPREADSHEET_ID":   &c.SpreadsheetID,
		"CONTACTS_SYNC_SHEET_NAME":       &c.SheetName,
		"CONTACTS_SYNC_TSV_FILE":         &c.TSVFile,
		"CONTACTS_SYNC_CREDENTIALS_FILE": &c.CredentialsFile,
		"CONTACTS_SYNC_ACCESS_TOKEN":     &c.AccessToken,
		"CONTACTS_SYNC_ADMIN_EMAIL":      &c.AdminEmail,
		"CONTACTS_SYNC_DOMAIN":           &c.Domain,
		"CONTACTS_SYNC_LOG_LEVEL":        &c.LogLevel,
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*field = v
		}
	}
}

func (c *Config) validate() error {
	if c.Domain == "" {
		return fmt.Errorf("domain is not set (set domain or admin_email)")
	}
	if c.SpreadsheetID == "" && c.TSVFile == "" {
		return fmt.Errorf("spreadsheet_id or tsv_file must be set")
	}
	if c.AccessToken == "" && c.CredentialsFile == "" {
		return fmt.Errorf("credentials_file or access_token must be set")
	}
	if c.AccessToken == "" && c.AdminEmail == "" {
		return fmt.Errorf("admin_email must be set when using credentials_file (the service account acts as that user)")
	}
	if c.SheetName == "" {
		return fmt.Errorf("sheet_name must not be empty")
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("max_results must be positive, got %d", c.MaxResults)
	}
	return nil
}
