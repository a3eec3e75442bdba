// Package model defines the core domain types shared across the application.
package model

import "time"

// Receipt represents a single stored purchase record for a user.
type Receipt struct {
	PurchaseDate time.Time
	CreatedAt    time.Time
	ID           string
	UserID       string
	Merchant     string
	Category     string
	Total        float64
}
