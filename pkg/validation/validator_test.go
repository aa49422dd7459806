package validation

import (
	"errors"
	"strings"
	"testing"
)

type person struct {
	Name  string `json:"name" validate:"required,min=2,max=100,personname"`
	Email string `json:"email" validate:"required,max=254,emailaddr"`
	Age   int    `json:"age" validate:"gt=0,lte=150"`
}

func TestFirst_ReportsFirstFieldInOrder(t *testing.T) {
	v := New()
	err := v.Struct(person{Name: "", Email: "invalid-email", Age: -5})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if got := First(err); got != "name cannot be null or empty" {
		t.Fatalf("unexpected first violation %q", got)
	}
}

func TestCustomTags(t *testing.T) {
	v := New()
	cases := []struct {
		name string
		in   person
		want string
	}{
		{"valid", person{Name: "Mary-Jane O'Neil", Email: "mj.o+tag@mail.example.org", Age: 40}, ""},
		{"digits in name", person{Name: "R2D2", Email: "r2@example.com", Age: 40}, "name can only contain letters, spaces, hyphens, and apostrophes"},
		{"short name", person{Name: "A", Email: "a@example.com", Age: 40}, "name must be at least 2 characters long"},
		{"bad email", person{Name: "Ann", Email: "ann@example", Age: 40}, "email must be a valid email"},
		{"long email", person{Name: "Ann", Email: strings.Repeat("a", 250) + "@example.com", Age: 40}, "email cannot be longer than 254 characters"},
		{"zero age", person{Name: "Ann", Email: "ann@example.com", Age: 0}, "age must be greater than 0"},
		{"old age", person{Name: "Ann", Email: "ann@example.com", Age: 151}, "age cannot be greater than 150"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := First(v.Struct(tc.in))
			if got != tc.want {
				t.Fatalf("First() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestToDetails(t *testing.T) {
	v := New()
	details := ToDetails(v.Struct(person{Name: "Ann", Email: "nope", Age: 0}))
	if details["email"] == "" || details["age"] == "" {
		t.Fatalf("expected email and age details, got %v", details)
	}
	if _, ok := details["name"]; ok {
		t.Fatalf("name is valid and should not be reported")
	}
	if got := ToDetails(errors.New("boom")); got["payload"] != "invalid payload" {
		t.Fatalf("unexpected fallback %v", got)
	}
}
