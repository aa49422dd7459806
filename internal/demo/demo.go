// Package demo walks through every user operation against a live or in-memory store.
package demo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/oksasatya/go-firestore-crud/internal/application"
	"github.com/oksasatya/go-firestore-crud/internal/domain/entity"
	"github.com/oksasatya/go-firestore-crud/internal/domain/errs"
)

// SampleUsers is the fixed data set used by seeding and the walkthrough.
var SampleUsers = []application.UserInput{
	{Name: "John Doe", Email: "john.doe@example.com", Age: 30},
	{Name: "Jane Smith", Email: "jane.smith@example.com", Age: 25},
	{Name: "Bob Johnson", Email: "bob.johnson@example.com", Age: 35},
	{Name: "Alice Wilson", Email: "alice.wilson@example.com", Age: 28},
	{Name: "Charlie Brown", Email: "charlie.brown@example.com", Age: 42},
	{Name: "Diana Prince", Email: "diana.prince@example.com", Age: 29},
}

type Runner struct {
	Svc *application.Service
	Out io.Writer
}

func New(svc *application.Service, out io.Writer) *Runner {
	return &Runner{Svc: svc, Out: out}
}

func (r *Runner) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.Out, format+"\n", args...)
}

func (r *Runner) section(name string) {
	r.printf("\n--- %s ---", name)
}

// Run executes every section. A failing section is reported and the next one still runs;
// the joined failures are returned.
func (r *Runner) Run(ctx context.Context) error {
	r.printf("%s\n    FIRESTORE CRUD OPERATIONS DEMO\n%s", strings.Repeat("=", 50), strings.Repeat("=", 50))
	var failures []error
	for _, step := range []struct {
		name string
		fn   func(context.Context) error
	}{
		{"CREATE OPERATIONS", r.create},
		{"READ OPERATIONS", r.read},
		{"UPDATE OPERATIONS", r.update},
		{"DELETE OPERATIONS", r.delete},
		{"USER STATISTICS", r.stats},
	} {
		r.section(step.name)
		if err := step.fn(ctx); err != nil {
			r.printf("FAILED: %v", err)
			failures = append(failures, fmt.Errorf("%s: %w", strings.ToLower(step.name), err))
		}
	}
	return errors.Join(failures...)
}

func describe(u *entity.User) string {
	return fmt.Sprintf("User{id=%s, name=%s, email=%s, age=%d}", u.ID, u.Name, u.Email, u.Age)
}

func (r *Runner) create(ctx context.Context) error {
	r.printf("Creating individual users...")
	for _, in := range SampleUsers[:3] {
		u, err := r.Svc.CreateUser(ctx, in.Name, in.Email, in.Age)
		if err != nil {
			return err
		}
		r.printf("created: %s", describe(u))
	}

	r.printf("Creating multiple users in batch...")
	batch, err := r.Svc.CreateUsers(ctx, SampleUsers[3:])
	if err != nil {
		return err
	}
	r.printf("batch created %d users", len(batch))

	r.printf("Testing validation (this should fail)...")
	if _, err := r.Svc.CreateUser(ctx, "", "invalid-email", -5); errs.IsValidation(err) {
		r.printf("validation working: %s", errs.Message(err))
	} else {
		return fmt.Errorf("invalid user was not rejected: %v", err)
	}
	return nil
}

func (r *Runner) read(ctx context.Context) error {
	all, err := r.Svc.GetAllUsers(ctx)
	if err != nil {
		return err
	}
	r.printf("found %d users", len(all))
	for _, u := range all {
		r.printf("   %s", describe(u))
	}
	if len(all) > 0 {
		byID, err := r.Svc.GetUserByID(ctx, all[0].ID)
		if err != nil {
			return err
		}
		r.printf("by id %s: %s", all[0].ID, describe(byID))
		byEmail, err := r.Svc.GetUserByEmail(ctx, all[0].Email)
		if err != nil {
			return err
		}
		r.printf("by email %s: %s", all[0].Email, describe(byEmail))
	}

	inRange, err := r.Svc.GetUsersByAgeRange(ctx, 25, 35)
	if err != nil {
		return err
	}
	r.printf("found %d users aged 25-35", len(inRange))
	for _, u := range inRange {
		r.printf("   %s (age %d)", u.Name, u.Age)
	}

	named, err := r.Svc.SearchUsersByName(ctx, "Jo")
	if err != nil {
		return err
	}
	r.printf("found %d users with 'Jo' in name", len(named))
	for _, u := range named {
		r.printf("   %s", u.Name)
	}
	return nil
}

func (r *Runner) update(ctx context.Context) error {
	users, err := r.Svc.GetAllUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		r.printf("no users available for update demo")
		return nil
	}
	target := users[0]
	r.printf("before: %s", describe(target))
	ok, err := r.Svc.UpdateUser(ctx, target.ID, "John Updated Doe", "john.updated@example.com", 31)
	if err != nil {
		return err
	}
	r.printf("updated: %v", ok)
	if after, err := r.Svc.GetUserByID(ctx, target.ID); err == nil {
		r.printf("after: %s", describe(after))
	}

	ok, err = r.Svc.UpdateUserEmail(ctx, target.ID, "john.newest@example.com")
	if err != nil {
		return err
	}
	r.printf("email updated: %v", ok)

	if len(users) > 1 {
		r.printf("Testing duplicate email validation...")
		if _, err := r.Svc.UpdateUserEmail(ctx, target.ID, users[1].Email); errs.IsValidation(err) {
			r.printf("duplicate email validation working: %s", errs.Message(err))
		} else {
			return fmt.Errorf("duplicate email was not rejected: %v", err)
		}
	}
	return nil
}

func (r *Runner) delete(ctx context.Context) error {
	users, err := r.Svc.GetAllUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		r.printf("no users available for delete demo")
		return nil
	}
	target := users[len(users)-1]
	r.printf("deleting %s (id %s)", target.Name, target.ID)
	if _, err := r.Svc.DeleteUser(ctx, target.ID); err != nil {
		return err
	}
	exists, err := r.Svc.UserExists(ctx, target.ID)
	if err != nil {
		return err
	}
	r.printf("user still exists? %v", exists)

	r.printf("Bulk delete without confirmation (this should fail)...")
	if _, err := r.Svc.DeleteUsersByAgeRange(ctx, 40, entity.MaxAge, false); errs.IsValidation(err) {
		r.printf("confirmation required: %s", errs.Message(err))
	} else {
		return fmt.Errorf("unconfirmed bulk delete was not rejected: %v", err)
	}
	return nil
}

func (r *Runner) stats(ctx context.Context) error {
	st, err := r.Svc.GetUserStatistics(ctx)
	if err != nil {
		return err
	}
	r.printf("UserStatistics{totalUsers=%d, averageAge=%.2f, minAge=%d, maxAge=%d}", st.TotalUsers, st.AverageAge, st.MinAge, st.MaxAge)
	return nil
}
