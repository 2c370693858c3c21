package domain

import "time"

// Product condition constants for pre-loved items.
const (
	ConditionNew     = "new"
	ConditionLikeNew = "like_new"
	ConditionGood    = "good"
	ConditionFair    = "fair"
)

// Drop is a time-boxed collection of products.
type Drop struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	IsActive    bool      `json:"is_active"`
}

// IsLive reports whether the drop accepts orders at t.
func (d *Drop) IsLive(t time.Time) bool {
	return d.IsActive && !t.Before(d.StartsAt) && t.Before(d.EndsAt)
}

// Product is a single listing, usually a one-off thrifted piece.
type Product struct {
	ID          string    `json:"id"`
	DropID      string    `json:"drop_id,omitempty"`
	VendorID    string    `json:"vendor_id,omitempty"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Price       int64     `json:"price"`
	Stock       int       `json:"stock"`
	Size        string    `json:"size,omitempty"`
	Condition   string    `json:"condition"`
	ImageURL    string    `json:"image_url,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductUpdate holds the vendor-editable product fields. Nil fields are left
// unchanged.
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *int64
	Stock       *int
	Size        *string
	Condition   *string
	ImageURL    *string
	IsActive    *bool
}
