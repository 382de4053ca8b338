package gdata

import (
	"github.com/jimanjang/Domain-Shared-Contacts-Sync-GData-m8-XML/internal/model"
	"github.com/jimanjang/Domain-Shared-Contacts-Sync-GData-m8-XML/internal/xmlutil"
)

const (
	NSAtom    = "http://www.w3.org/2005/Atom"
	NSGData   = "http://schemas.google.com/g/2005"
	NSContact = "http://schemas.google.com/contact/2008"
)

// ParseEntry maps one feed entry to a Contact. It has no side effects.
func ParseEntry(entry *xmlutil.Element) (model.Contact, error) {
	id := entry.ChildText(NSAtom, "id")
	editLink := linkHref(entry, "edit")
	if editLink == "" {
		return model.Contact{}, &MalformedEntryError{ID: id, Reason: `missing link rel="edit"`}
	}
	if id == "" {
		return model.Contact{}, &MalformedEntryError{Reason: "missing id"}
	}

	name := entry.Child(NSGData, "name")

	c := model.Contact{
		ID:         id,
		EditLink:   editLink,
		Title:      entry.ChildText(NSAtom, "title"),
		FullName:   name.ChildText(NSGData, "fullName"),
		GivenName:  name.ChildText(NSGData, "givenName"),
		FamilyName: name.ChildText(NSGData, "familyName"),
		Birthday:   entry.Child(NSContact, "birthday").Attr("when"),
		Note:       entry.ChildText(NSAtom, "content"),
	}

	for _, e := range entry.All(NSGData, "email") {
		c.Emails = append(c.Emails, e.Attr("address"))
	}
	for _, p := range entry.All(NSGData, "phoneNumber") {
		c.Phones = append(c.Phones, p.Text())
	}
	for _, o := range entry.All(NSGData, "organization") {
		c.Organizations = append(c.Organizations,
			model.OrganizationLabel(o.ChildText(NSGData, "orgName"), o.ChildText(NSGData, "orgTitle")))
	}
	for _, a := range entry.All(NSGData, "structuredPostalAddress") {
		c.Addresses = append(c.Addresses, postalAddress(a))
	}
	for _, w := range entry.All(NSContact, "website") {
		c.Websites = append(c.Websites, w.Attr("href"))
	}

	return c, nil
}

func postalAddress(a *xmlutil.Element) string {
	if f := a.ChildText(NSGData, "formattedAddress"); f != "" {
		return f
	}
	postcode := a.ChildText(NSGData, "postcode")
	if postcode == "" {
		postcode = a.ChildText(NSGData, "postalCode")
	}
	return model.JoinAddress(
		a.ChildText(NSGData, "street"),
		a.ChildText(NSGData, "city"),
		a.ChildText(NSGData, "region"),
		postcode,
		a.ChildText(NSGData, "country"),
	)
}

// linkHref returns the href of the first atom link with the given rel.
func linkHref(el *xmlutil.Element, rel string) string {
	for _, l := range el.All(NSAtom, "link") {
		if l.Attr("rel") == rel {
			return l.Attr("href")
		}
	}
	return ""
}
