package model

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/and161185/sublease/internal/errs"
)

// AnyLocation is the UI placeholder that means "no location filter".
const AnyLocation = "Any location"

// MaxPageSize is the largest page the API serves.
const MaxPageSize = 100

// ListingFilter holds search/filter/pagination parameters of GET /listings/.
// Zero values and nil pointers mean "not set".
type ListingFilter struct {
	Skip     int
	Limit    int
	Search   string
	MinPrice *float64
	MaxPrice *float64
	Location string
	Bedrooms *int
}

// Validate checks ranges before the filter leaves the process.
func (f ListingFilter) Validate() error {
	switch {
	case f.Skip < 0:
		return errs.Validation("skip", "Skip cannot be negative")
	case f.Limit < 0 || f.Limit > MaxPageSize:
		return errs.Validation("limit", "Limit must be between 1 and 100, or 0 for the default page")
	case f.MinPrice != nil && *f.MinPrice < 0:
		return errs.Validation("min_price", "Minimum price cannot be negative")
	case f.MaxPrice != nil && *f.MaxPrice < 0:
		return errs.Validation("max_price", "Maximum price cannot be negative")
	case f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice:
		return errs.Validation("min_price", "Minimum price exceeds maximum price")
	case f.Bedrooms != nil && *f.Bedrooms < 1:
		return errs.Validation("bedrooms", "Bedrooms must be at least 1")
	}
	return nil
}

func (f ListingFilter) location() string {
	l := strings.TrimSpace(f.Location)
	if l == AnyLocation {
		return ""
	}
	return l
}

// Query maps the filter to query parameters; unset fields are omitted.
func (f ListingFilter) Query() url.Values {
	q := url.Values{}
	if f.Skip > 0 {
		q.Set("skip", strconv.Itoa(f.Skip))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q.Set("search", s)
	}
	if f.MinPrice != nil {
		q.Set("min_price", strconv.FormatFloat(*f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice != nil {
		q.Set("max_price", strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}
	if l := f.location(); l != "" {
		q.Set("location", l)
	}
	if f.Bedrooms != nil {
		q.Set("bedrooms", strconv.Itoa(*f.Bedrooms))
	}
	return q
}

// Match applies the predicate part of the filter (no pagination) to l.
func (f ListingFilter) Match(l Listing) bool {
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		if !strings.Contains(strings.ToLower(l.Title), s) &&
			!strings.Contains(strings.ToLower(l.Description), s) &&
			!strings.Contains(strings.ToLower(l.Location), s) {
			return false
		}
	}
	if f.MinPrice != nil && l.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && l.Price > *f.MaxPrice {
		return false
	}
	if loc := f.location(); loc != "" && l.Location != loc {
		return false
	}
	if f.Bedrooms != nil && l.Bedrooms != *f.Bedrooms {
		return false
	}
	return true
}

// Select returns the listings of ls that match f. Skip and Limit are not applied.
func (f ListingFilter) Select(ls []Listing) []Listing {
	out := make([]Listing, 0, len(ls))
	for _, l := range ls {
		if f.Match(l) {
			out = append(out, l)
		}
	}
	return out
}

// Page applies Skip and Limit to ls.
func (f ListingFilter) Page(ls []Listing) []Listing {
	skip := max(f.Skip, 0)
	if skip >= len(ls) {
		return []Listing{}
	}
	ls = ls[skip:]
	if f.Limit > 0 && f.Limit < len(ls) {
		ls = ls[:f.Limit]
	}
	return ls
}

// Apply filters ls and then paginates with Skip/Limit.
func (f ListingFilter) Apply(ls []Listing) []Listing {
	return f.Page(f.Select(ls))
}
