package domain

import "time"

type Movie struct {
	ID              int64
	Title           string
	Description     string
	DurationMinutes int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (m Movie) Duration() time.Duration {
	return time.Duration(m.DurationMinutes) * time.Minute
}
