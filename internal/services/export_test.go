package services

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WithBeforeCheckInWrite runs fn inside CheckIn between the capacity check and
// the counter update, letting tests land a competing write in that gap.
func WithBeforeCheckInWrite(fn func(tx *gorm.DB, registrationID uuid.UUID) error) Option {
	return func(o *options) {
		o.beforeCheckInWrite = fn
	}
}
