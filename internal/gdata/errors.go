package gdata

import (
	"errors"
	"fmt"
)

const snippetLimit = 500

// ErrPaginationLoop is returned when a feed's next link repeats a page.
var ErrPaginationLoop = errors.New("feed pagination loop")

// FetchError reports a non-success response from the directory.
type FetchError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string // at most snippetLimit characters
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// MalformedEntryError is returned for an entry that cannot become a Contact.
type MalformedEntryError struct {
	ID     string
	Reason string
}

func (e *MalformedEntryError) Error() string {
	if e.ID == "" {
		return "malformed entry: " + e.Reason
	}
	return fmt.Sprintf("malformed entry %s: %s", e.ID, e.Reason)
}

func snippet(body []byte) string {
	r := []rune(string(body))
	if len(r) > snippetLimit {
		r = r[:snippetLimit]
	}
	return string(r)
}
