package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jimanjang/Domain-Shared-Contacts-Sync-GData-m8-XML/internal/auth"
)

const (
	sheetsAPIBase    = "https://sheets.googleapis.com/v4/spreadsheets"
	defaultBatchSize = 500
)

// APIError is a non-success response from the Sheets API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sheets API error (HTTP %d): %s", e.StatusCode, e.Body)
}

// Client is a Table backed by one sheet of a Google spreadsheet.
type Client struct {
	tokens        auth.TokenSource
	httpClient    *http.Client
	baseURL       string
	spreadsheetID string
	sheetName     string
	batchSize     int
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBatchSize sets how many rows go into one write request.
func WithBatchSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

func New(tokens auth.TokenSource, spreadsheetID, sheetName string, opts ...Option) *Client {
	c := &Client{
		tokens:        tokens,
		httpClient:    &http.Client{},
		baseURL:       sheetsAPIBase,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		batchSize:     defaultBatchSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Values(ctx context.Context) ([][]string, error) {
	exists, err := c.sheetExists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, c.sheetName)
	}

	var result valuesResponse
	u := fmt.Sprintf("%s/%s/values/%s", c.baseURL, c.spreadsheetID, url.PathEscape(c.quotedName()+"!A1:ZZ"))
	if err := c.do(ctx, http.MethodGet, u, nil, &result); err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}
	return result.Values, nil
}

func (c *Client) Overwrite(ctx context.Context, rows [][]string) error {
	if err := c.ensureSheet(ctx); err != nil {
		return err
	}

	clearURL := fmt.Sprintf("%s/%s/values/%s:clear", c.baseURL, c.spreadsheetID, url.PathEscape(c.quotedName()))
	if err := c.do(ctx, http.MethodPost, clearURL, struct{}{}, nil); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}

	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	if width == 0 {
		return nil
	}

	for start := 0; start < len(rows); start += c.batchSize {
		end := min(start+c.batchSize, len(rows))
		rng := fmt.Sprintf("%s!A%d:%s%d", c.quotedName(), start+1, a1Column(width), end)
		if err := c.batchUpdate(ctx, []batchData{{Range: rng, Values: rows[start:end]}}); err != nil {
			return fmt.Errorf("write rows %d-%d: %w", start+1, end, err)
		}
	}
	return nil
}

// --- Sheets API raw HTTP ---

type valuesResponse struct {
	Values [][]string `json:"values"`
}

type spreadsheetResponse struct {
	Sheets []struct {
		Properties struct {
			Title string `json:"title"`
		} `json:"properties"`
	} `json:"sheets"`
}

func (c *Client) sheetExists(ctx context.Context) (bool, error) {
	var meta spreadsheetResponse
	u := fmt.Sprintf("%s/%s?fields=sheets.properties.title", c.baseURL, c.spreadsheetID)
	if err := c.do(ctx, http.MethodGet, u, nil, &meta); err != nil {
		return false, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, s := range meta.Sheets {
		if s.Properties.Title == c.sheetName {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) ensureSheet(ctx context.Context) error {
	exists, err := c.sheetExists(ctx)
	if err != nil || exists {
		return err
	}

	body := map[string]any{
		"requests": []any{
			map[string]any{
				"addSheet": map[string]any{
					"properties": map[string]any{"title": c.sheetName},
				},
			},
		},
	}
	u := fmt.Sprintf("%s/%s:batchUpdate", c.baseURL, c.spreadsheetID)
	if err := c.do(ctx, http.MethodPost, u, body, nil); err != nil {
		return fmt.Errorf("create sheet %s: %w", c.sheetName, err)
	}
	return nil
}

type batchData struct {
	Range  string     `json:"range"`
	Values [][]string `json:"values"`
}

type batchUpdateRequest struct {
	ValueInputOption string      `json:"valueInputOption"`
	Data             []batchData `json:"data"`
}

// batchUpdate writes RAW so ids, links and dates are stored exactly as given.
func (c *Client) batchUpdate(ctx context.Context, data []batchData) error {
	u := fmt.Sprintf("%s/%s/values:batchUpdate", c.baseURL, c.spreadsheetID)
	return c.do(ctx, http.MethodPost, u, batchUpdateRequest{ValueInputOption: "RAW", Data: data}, nil)
}

func (c *Client) do(ctx context.Context, method, u string, in, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse API response: %w", err)
	}
	return nil
}

// --- helpers ---

func (c *Client) quotedName() string {
	return "'" + strings.ReplaceAll(c.sheetName, "'", "''") + "'"
}

// a1Column returns the A1 column name of the n-th column, 1-based
// (1 → A, 26 → Z, 27 → AA).
func a1Column(n int) string {
	var buf []byte
	for ; n > 0; n = (n - 1) / 26 {
		buf = append([]byte{byte('A' + (n-1)%26)}, buf...)
	}
	return string(buf)
}
