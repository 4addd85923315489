package events

import (
	"time"

	"github.com/google/uuid"
)

type RecordCreated struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"createdAt"`
}

type RecordUpdated struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Priority  int       `json:"priority"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type RecordDeleted struct {
	ID uuid.UUID `json:"id"`
}
