package model

import "strings"

// ListSeparator joins multi-valued fields into a single cell.
const ListSeparator = "; "

// FlagColumn is the header of the sheet-only delete flag column.
const FlagColumn = "삭제"

// Header is the first row of the contacts table, in column order.
var Header = []string{
	"ID", "EditLink", "Title",
	"Full Name", "Given Name", "Family Name",
	"Emails", "Phones", "Organizations",
	"Addresses", "Birthday", "Websites", "Note", FlagColumn,
}

type Contact struct {
	ID         string
	EditLink   string // edit reference used for update/delete
	Title      string
	FullName   string
	GivenName  string
	FamilyName string

	Emails        []string
	Phones        []string
	Organizations []string // "company (title)" or "company"
	Addresses     []string
	Birthday      string // ISO date, or ""
	Websites      []string
	Note          string

	DeleteFlag string // sheet only, never sourced from the directory
}

// Row renders the contact in Header order.
func (c Contact) Row() []string {
	return []string{
		c.ID, c.EditLink, c.Title,
		c.FullName, c.GivenName, c.FamilyName,
		strings.Join(c.Emails, ListSeparator),
		strings.Join(c.Phones, ListSeparator),
		strings.Join(c.Organizations, ListSeparator),
		strings.Join(c.Addresses, ListSeparator),
		c.Birthday,
		strings.Join(c.Websites, ListSeparator),
		c.Note,
		c.DeleteFlag,
	}
}

// OrganizationLabel composes "company (title)", dropping the parenthetical
// when title is empty.
func OrganizationLabel(company, title string) string {
	if title == "" {
		return company
	}
	return company + " (" + title + ")"
}

// JoinAddress joins the non-empty parts with ", ".
func JoinAddress(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

// SplitList is the inverse of the ListSeparator join used by Row.
func SplitList(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	parts := strings.Split(cell, ListSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
