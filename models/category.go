package models

import (
	"strings"

	"github.com/uptrace/bun"
)

// Category is a named age band (inclusive on both ends) used to bucket runners.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:ca"`

	ID     int64  `bun:"id,pk" json:"id"`
	Name   string `bun:"name,notnull" json:"name"`
	MinAge int    `bun:"min_age,notnull" json:"minAge"`
	MaxAge int    `bun:"max_age,notnull" json:"maxAge"`
}

// NewCategory validates the band and returns a Category with the given id.
func NewCategory(id int64, name string, minAge, maxAge int) (*Category, error) {
	name = strings.TrimSpace(name)
	if id <= 0 {
		return nil, invalid("id", "must be > 0")
	}
	if name == "" {
		return nil, invalid("name", "required")
	}
	if minAge < 0 {
		return nil, invalid("minAge", "must be >= 0")
	}
	if maxAge < minAge {
		return nil, invalid("maxAge", "must be >= minAge")
	}
	return &Category{ID: id, Name: name, MinAge: minAge, MaxAge: maxAge}, nil
}

// Accepts reports whether age falls inside the band.
func (c *Category) Accepts(age int) bool {
	return age >= c.MinAge && age <= c.MaxAge
}
