// Package models defines the domain types for LifeONE.
package models

import "strings"

// DefaultGroup is used for contacts and diary entries without a group.
const DefaultGroup = "기타"

// Contact is an address-book entry. Phone holds digits only.
type Contact struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Group    string `json:"group"`
	Favorite bool   `json:"favorite"`
}

// ContactPatch lists the fields a modification may overwrite. Nil means unchanged.
type ContactPatch struct {
	Name     *string `json:"name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Email    *string `json:"email,omitempty"`
	Group    *string `json:"group,omitempty"`
	Favorite *bool   `json:"favorite,omitempty"`
}

// Apply overwrites the fields set in p.
func (p ContactPatch) Apply(c *Contact) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Phone != nil {
		c.Phone = PhoneDigits(*p.Phone)
	}
	if p.Email != nil {
		c.Email = strings.TrimSpace(*p.Email)
	}
	if p.Group != nil {
		c.Group = strings.TrimSpace(*p.Group)
		if c.Group == "" {
			c.Group = DefaultGroup
		}
	}
	if p.Favorite != nil {
		c.Favorite = *p.Favorite
	}
}

// PhoneDigits strips everything but ASCII digits.
func PhoneDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatPhone renders stored digits the way Korean numbers are written:
// 010-1234-5678. Digits past the eleventh are dropped.
func FormatPhone(digits string) string {
	d := PhoneDigits(digits)
	switch {
	case len(d) <= 3:
		return d
	case len(d) <= 7:
		return d[:3] + "-" + d[3:]
	case len(d) > 11:
		d = d[:11]
	}
	return d[:3] + "-" + d[3:7] + "-" + d[7:]
}
