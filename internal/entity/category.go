package domain

import "time"

// Category is a named grouping in the catalog. Names are unique regardless
// of case.
type Category struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
