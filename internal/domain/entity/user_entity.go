package entity

import (
	"strings"
	"time"
)

// Age bounds shared by the entity predicate and service validation.
const (
	MinAge = 1
	MaxAge = 150
)

// User is the aggregate root for user domain.
// ID is assigned by the store on insert and never changes afterwards.
type User struct {
	ID        string
	Name      string
	Email     string
	Age       int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser stamps both timestamps with the construction time.
func NewUser(name, email string, age int) *User {
	now := time.Now().UTC()
	return &User{
		Name:      name,
		Email:     email,
		Age:       age,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (u *User) SetName(name string) {
	u.Name = name
	u.Touch()
}

func (u *User) SetEmail(email string) {
	u.Email = email
	u.Touch()
}

func (u *User) SetAge(age int) {
	u.Age = age
	u.Touch()
}

// Touch refreshes UpdatedAt.
func (u *User) Touch() {
	u.UpdatedAt = time.Now().UTC()
}

// IsValid is the structural predicate every persisted user satisfies.
// The service layer applies the stricter format rules on top.
func (u *User) IsValid() bool {
	if u == nil {
		return false
	}
	return strings.TrimSpace(u.Name) != "" &&
		LooksLikeEmail(u.Email) &&
		u.Age >= MinAge && u.Age <= MaxAge
}

// LooksLikeEmail is the coarse check used at the repository boundary.
func LooksLikeEmail(email string) bool {
	email = strings.TrimSpace(email)
	return len(email) > 5 && strings.Contains(email, "@") && strings.Contains(email, ".")
}

// SameFields compares the user-editable fields, ignoring ID and timestamps.
func (u *User) SameFields(o *User) bool {
	if u == nil || o == nil {
		return u == o
	}
	return u.Name == o.Name && u.Email == o.Email && u.Age == o.Age
}
