package model

import (
	"time"
)

// Order status values. Transitions are enforced by the order engine:
// pending and processing may advance, completed and cancelled are terminal.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// ValidStatus reports whether the given status is part of the enumeration
func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Order wraps a cart snapshot with a status lifecycle. Each order owns its
// cart exclusively; the unique index on CartID enforces the one-to-one link.
type Order struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	CartID    uint      `json:"cart_id" gorm:"uniqueIndex;not null"`
	Cart      Cart      `json:"cart"`
	Status    string    `json:"status" gorm:"type:varchar(20);default:'pending'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
