package domain

import "github.com/google/uuid"

// NewID genera un identificador opaco ordenable en el tiempo (UUIDv7).
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
