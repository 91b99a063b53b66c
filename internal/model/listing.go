package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/and161185/sublease/internal/errs"
)

// Listing is a rental property record created by an owning user.
type Listing struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Price         float64  `json:"price"`
	Location      string   `json:"location"`
	Bedrooms      int      `json:"bedrooms"`
	Bathrooms     float64  `json:"bathrooms"`
	AvailableFrom Time     `json:"available_from"`
	Amenities     []string `json:"amenities"`
	Images        []string `json:"images"` // data URIs or URLs
	Status        string   `json:"status"`
	Views         int      `json:"views"`
	Interested    int      `json:"interested"`
	CreatedAt     Time     `json:"created_at"`
	UpdatedAt     Time     `json:"updated_at"`
	UserID        int64    `json:"user_id"`
	UserUsername  string   `json:"user_username"`
}

// Validate checks a decoded listing.
func (l Listing) Validate() error {
	switch {
	case l.ID <= 0:
		return errors.New("listing: missing id")
	case l.UserID <= 0:
		return fmt.Errorf("listing %d: missing user_id", l.ID)
	case l.Price < 0:
		return fmt.Errorf("listing %d: negative price", l.ID)
	}
	return nil
}

// Listings is a decoded list response.
type Listings []Listing

func (ls Listings) Validate() error {
	for i := range ls {
		if err := ls[i].Validate(); err != nil {
			return fmt.Errorf("item[%d]: %w", i, err)
		}
	}
	return nil
}

// IDs returns the listing ids in order.
func (ls Listings) IDs() []int64 {
	out := make([]int64, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.ID)
	}
	return out
}

// ListingCreate is the payload of POST /listings/.
type ListingCreate struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Price         float64  `json:"price"`
	Location      string   `json:"location"`
	Bedrooms      int      `json:"bedrooms"`
	Bathrooms     float64  `json:"bathrooms"`
	AvailableFrom Time     `json:"available_from"`
	Amenities     []string `json:"amenities"`
	Images        []string `json:"images"`
}

// Validate rejects a payload the server would refuse.
func (c ListingCreate) Validate() error {
	switch {
	case strings.TrimSpace(c.Title) == "":
		return errs.Validation("title", "Title is required")
	case strings.TrimSpace(c.Location) == "":
		return errs.Validation("location", "Location is required")
	case c.Price <= 0:
		return errs.Validation("price", "Price must be greater than 0")
	case c.Bedrooms < 1:
		return errs.Validation("bedrooms", "Bedrooms must be at least 1")
	case c.Bathrooms < 0:
		return errs.Validation("bathrooms", "Bathrooms cannot be negative")
	case c.AvailableFrom.IsZero():
		return errs.Validation("available_from", "Available from date is required")
	}
	return nil
}

// ListingUpdate is a partial payload of PUT /listings/{id}; nil fields are left unchanged.
type ListingUpdate struct {
	Title         *string   `json:"title,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Price         *float64  `json:"price,omitempty"`
	Location      *string   `json:"location,omitempty"`
	Bedrooms      *int      `json:"bedrooms,omitempty"`
	Bathrooms     *float64  `json:"bathrooms,omitempty"`
	AvailableFrom *Time     `json:"available_from,omitempty"`
	Amenities     *[]string `json:"amenities,omitempty"`
	Images        *[]string `json:"images,omitempty"`
	Status        *string   `json:"status,omitempty"`
}

// IsEmpty reports whether no field is set.
func (u ListingUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Price == nil && u.Location == nil &&
		u.Bedrooms == nil && u.Bathrooms == nil && u.AvailableFrom == nil &&
		u.Amenities == nil && u.Images == nil && u.Status == nil
}

// Validate checks only the fields that are set.
func (u ListingUpdate) Validate() error {
	switch {
	case u.IsEmpty():
		return errs.Validation("", "Nothing to update")
	case u.Title != nil && strings.TrimSpace(*u.Title) == "":
		return errs.Validation("title", "Title is required")
	case u.Location != nil && strings.TrimSpace(*u.Location) == "":
		return errs.Validation("location", "Location is required")
	case u.Price != nil && *u.Price <= 0:
		return errs.Validation("price", "Price must be greater than 0")
	case u.Bedrooms != nil && *u.Bedrooms < 1:
		return errs.Validation("bedrooms", "Bedrooms must be at least 1")
	case u.Bathrooms != nil && *u.Bathrooms < 0:
		return errs.Validation("bathrooms", "Bathrooms cannot be negative")
	}
	return nil
}
