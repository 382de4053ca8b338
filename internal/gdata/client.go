// Package gdata talks to the domain shared contacts feed (GData m8, Atom
// XML, protocol version 3.0).
package gdata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jimanjang/Domain-Shared-Contacts-Sync-GData-m8-XML/internal/auth"
	"github.com/jimanjang/Domain-Shared-Contacts-Sync-GData-m8-XML/internal/model"
	"github.com/jimanjang/Domain-Shared-Contacts-Sync-GData-m8-XML/internal/xmlutil"
)

const (
	DefaultFeedBase   = "https://www.google.com/m8/feeds/contacts"
	DefaultMaxResults = 1000

	protocolVersion = "3.0"
)

// FeedURL builds {base}/{domain}/full?max-results=N.
func FeedURL(base, domain string, maxResults int) string {
	return fmt.Sprintf("%s/%s/full?max-results=%s",
		strings.TrimRight(base, "/"), url.PathEscape(domain), strconv.Itoa(maxResults))
}

type Client struct {
	httpClient *http.Client
	tokens     auth.TokenSource
	logger     *zap.Logger
}

func NewClient(tokens auth.TokenSource, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{},
		tokens:     tokens,
		logger:     logger,
	}
}

// Page is one parsed feed document.
type Page struct {
	Entries []*xmlutil.Element
	Next    string // href of link rel="next", or ""
}

// FetchPage retrieves and parses a single feed page.
func (c *Client) FetchPage(ctx context.Context, pageURL string) (*Page, error) {
	c.logger.Info("fetching feed page", zap.String("url", pageURL))

	status, body, err := c.do(ctx, http.MethodGet, pageURL)
	if err != nil {
		return nil, err
	}

	c.logger.Info("feed page response",
		zap.String("url", pageURL),
		zap.Int("status", status),
		zap.String("body", snippet(body)))

	if status != http.StatusOK {
		return nil, &FetchError{Method: http.MethodGet, URL: pageURL, StatusCode: status, Body: snippet(body)}
	}

	feed, err := xmlutil.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", pageURL, err)
	}

	return &Page{
		Entries: feed.All(NSAtom, "entry"),
		Next:    linkHref(feed, "next"),
	}, nil
}

// Entries walks the feed from startURL, following next links until none is
// left. A page error, or a next link pointing at a page already read, is
// yielded once and ends the sequence.
func (c *Client) Entries(ctx context.Context, startURL string) iter.Seq2[*xmlutil.Element, error] {
	return func(yield func(*xmlutil.Element, error) bool) {
		seen := make(map[string]bool)
		for next := startURL; next != ""; {
			if seen[next] {
				yield(nil, fmt.Errorf("%w: %s", ErrPaginationLoop, next))
				return
			}
			seen[next] = true

			page, err := c.FetchPage(ctx, next)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, e := range page.Entries {
				if !yield(e, nil) {
					return
				}
			}
			next = page.Next
		}
	}
}

// Contacts fetches every page and parses every entry. Any failure aborts the
// whole fetch and no contacts are returned.
func (c *Client) Contacts(ctx context.Context, startURL string) ([]model.Contact, error) {
	contacts := []model.Contact{}
	for entry, err := range c.Entries(ctx, startURL) {
		if err != nil {
			return nil, err
		}
		contact, err := ParseEntry(entry)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	return contacts, nil
}

// DeleteResult is the directory's answer to a delete request.
type DeleteResult struct {
	StatusCode int
	Body       string
}

// Delete removes the entry behind editLink. A non-2xx answer is returned as
// both the result and a *FetchError.
func (c *Client) Delete(ctx context.Context, editLink string) (DeleteResult, error) {
	status, body, err := c.do(ctx, http.MethodDelete, editLink)
	if err != nil {
		return DeleteResult{}, err
	}

	res := DeleteResult{StatusCode: status, Body: string(body)}
	if status < 200 || status > 299 {
		return res, &FetchError{Method: http.MethodDelete, URL: editLink, StatusCode: status, Body: snippet(body)}
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, method, target string) (int, []byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("get access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("GData-Version", protocolVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}
