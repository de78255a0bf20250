package domain

import (
	"time"

	"github.com/google/uuid"
)

// SystemActor is recorded as the actor for scheduled maintenance.
const SystemActor = "system"

// ActivityLogEntry is one line of the audit trail. Entries are never
// updated or deleted.
type ActivityLogEntry struct {
	ID        uuid.UUID `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}
