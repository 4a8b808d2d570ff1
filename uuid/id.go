// Package uuid implements the ID service on google/uuid identifiers.
package uuid

import (
	"github.com/coinvex/trading"
	"github.com/google/uuid"
)

type IDService struct{}

func (ids *IDService) NewID() trading.ID {
	return uuid.New()
}

func (ids *IDService) NewIDFromString(id string) (trading.ID, error) {
	return uuid.Parse(id)
}
