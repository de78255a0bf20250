package domain

import (
	"time"

	"github.com/google/uuid"
)

// Ratings are whole stars in [MinRating, MaxRating].
const (
	MinRating = 1
	MaxRating = 5
)

// FeedbackEntry is a customer comment about an order. Entries are append-only.
type FeedbackEntry struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	OrderRef  string    `json:"order_ref,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
