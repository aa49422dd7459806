package event

import (
	"time"

	"github.com/oksasatya/go-firestore-crud/internal/domain/entity"
)

// Type names a user lifecycle change.
type Type string

const (
	UserCreated         Type = "user.created"
	UserUpdated         Type = "user.updated"
	UserDeleted         Type = "user.deleted"
	UsersDeletedByRange Type = "users.deleted_by_age_range"
	UsersDeletedAll     Type = "users.deleted_all"
)

// UserSnapshot is the wire form of a user inside an event.
type UserSnapshot struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Age       int       `json:"age"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserEvent is published after a successful mutation.
type UserEvent struct {
	Type       Type          `json:"type"`
	UserID     string        `json:"user_id,omitempty"`
	User       *UserSnapshot `json:"user,omitempty"`
	MinAge     int           `json:"min_age,omitempty"`
	MaxAge     int           `json:"max_age,omitempty"`
	Deleted    int64         `json:"deleted,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

func Snapshot(u *entity.User) *UserSnapshot {
	if u == nil {
		return nil
	}
	return &UserSnapshot{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Age:       u.Age,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func Created(u *entity.User) UserEvent {
	return UserEvent{Type: UserCreated, UserID: u.ID, User: Snapshot(u), OccurredAt: time.Now().UTC()}
}

func Updated(u *entity.User) UserEvent {
	return UserEvent{Type: UserUpdated, UserID: u.ID, User: Snapshot(u), OccurredAt: time.Now().UTC()}
}

func Deleted(id string) UserEvent {
	return UserEvent{Type: UserDeleted, UserID: id, OccurredAt: time.Now().UTC()}
}

func DeletedByAgeRange(minAge, maxAge int, n int64) UserEvent {
	return UserEvent{Type: UsersDeletedByRange, MinAge: minAge, MaxAge: maxAge, Deleted: n, OccurredAt: time.Now().UTC()}
}

func DeletedAll(n int64) UserEvent {
	return UserEvent{Type: UsersDeletedAll, Deleted: n, OccurredAt: time.Now().UTC()}
}
