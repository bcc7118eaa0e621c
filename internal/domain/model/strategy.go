package model

import (
	"time"

	"copytrade-subscription/internal/domain"
)

// Strategy is catalog metadata the core reads; content rendering is out of
// scope.
type Strategy struct {
	ID        string
	Name      string
	Enabled   bool
	CreatedAt time.Time
}

func NewStrategy(id, name string) (*Strategy, error) {
	if id == "" || name == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Strategy{ID: id, Name: name, Enabled: true, CreatedAt: time.Now()}, nil
}

func (s *Strategy) IsZero() bool { return s == nil || s.ID == "" }
