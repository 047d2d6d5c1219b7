package models

import "github.com/uptrace/bun"

// User is an API operator allowed to run commands, with a bcrypt-hashed password.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID       int    `bun:"id,pk,autoincrement" json:"id"`
	Username string `bun:"username,notnull,unique" json:"username"`
	Password string `bun:"password,notnull" json:"-"`
}

// EventCategory links an event to one of its categories.
type EventCategory struct {
	bun.BaseModel `bun:"table:event_categories,alias:ec"`

	EventID    int64 `bun:"event_id,pk"`
	CategoryID int64 `bun:"category_id,pk"`
}
