package application

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-firestore-crud/internal/domain/entity"
	"github.com/oksasatya/go-firestore-crud/internal/domain/errs"
	"github.com/oksasatya/go-firestore-crud/internal/domain/event"
	repo "github.com/oksasatya/go-firestore-crud/internal/domain/repository"
	"github.com/oksasatya/go-firestore-crud/pkg/helpers"
	"github.com/oksasatya/go-firestore-crud/pkg/validation"
)

// EventPublisher delivers user lifecycle events. helpers.RabbitPublisher satisfies it.
type EventPublisher interface {
	PublishJSON(ctx context.Context, msgType string, body any) error
}

// UserSearcher is a full-text lookup over mirrored users.
type UserSearcher interface {
	Search(ctx context.Context, q string, size int) ([]*entity.User, error)
}

// Service applies business rules on top of the user repository.
// Events, Search and Snapshots are optional; leave them nil to disable the feature.
type Service struct {
	Repo      repo.UserRepository
	Logger    *logrus.Logger
	Events    EventPublisher
	Search    UserSearcher
	Snapshots SnapshotUploader

	validate *validator.Validate
}

func NewService(r repo.UserRepository, logger *logrus.Logger) *Service {
	return &Service{
		Repo:     r,
		Logger:   logger,
		validate: validation.New(),
	}
}

// UserInput is the caller-supplied part of a user.
type UserInput struct {
	Name  string `json:"name" validate:"required,min=2,max=100,personname"`
	Email string `json:"email" validate:"required,max=254,emailaddr"`
	Age   int    `json:"age" validate:"gt=0,lte=150"`
}

type emailInput struct {
	Email string `json:"email" validate:"required,max=254,emailaddr"`
}

func (in UserInput) normalized() UserInput {
	return UserInput{Name: strings.TrimSpace(in.Name), Email: strings.TrimSpace(in.Email), Age: in.Age}
}

func (s *Service) check(op string, v any) error {
	if err := s.validate.Struct(v); err != nil {
		return errs.Validation(op, validation.First(err))
	}
	return nil
}

func requireID(op, id string) error {
	if strings.TrimSpace(id) == "" {
		return errs.Validation(op, "user id cannot be null or empty")
	}
	return nil
}

// userID trims id and lowercases it, the canonical form of ObjectID hex.
func userID(id string) string { return strings.ToLower(strings.TrimSpace(id)) }

func (s *Service) publish(ctx context.Context, ev event.UserEvent) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishJSON(ctx, string(ev.Type), ev); err != nil {
		helpers.LogWarn(s.Logger, "publish user event failed", logrus.Fields{"type": ev.Type, "user_id": ev.UserID, "error": err.Error()})
	}
}

// CreateUser validates the input, rejects a taken email and stores a new user.
func (s *Service) CreateUser(ctx context.Context, name, email string, age int) (*entity.User, error) {
	const op = "Service.CreateUser"
	in := UserInput{Name: name, Email: email, Age: age}.normalized()
	if err := s.check(op, in); err != nil {
		return nil, err
	}
	taken, err := s.Repo.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errs.Validationf(op, "user with email '%s' already exists", in.Email)
	}
	u, err := s.Repo.Create(ctx, entity.NewUser(in.Name, in.Email, in.Age))
	if err != nil {
		return nil, err
	}
	helpers.LogInfo(s.Logger, "user created", logrus.Fields{"user_id": u.ID, "email": u.Email})
	s.publish(ctx, event.Created(u))
	return u, nil
}

// CreateUsers validates the whole batch, including duplicate emails inside it, before one bulk write.
// Emails compare exactly, the same rule ExistsByEmail applies against the store.
func (s *Service) CreateUsers(ctx context.Context, inputs []UserInput) ([]*entity.User, error) {
	const op = "Service.CreateUsers"
	if len(inputs) == 0 {
		return nil, errs.Validation(op, "users list cannot be null or empty")
	}
	seen := make(map[string]int, len(inputs))
	users := make([]*entity.User, 0, len(inputs))
	for i, raw := range inputs {
		in := raw.normalized()
		if err := s.validate.Struct(in); err != nil {
			return nil, errs.Validationf(op, "user at index %d: %s", i, validation.First(err))
		}
		if j, dup := seen[in.Email]; dup {
			return nil, errs.Validationf(op, "users at index %d and %d share email '%s'", j, i, in.Email)
		}
		seen[in.Email] = i
		taken, err := s.Repo.ExistsByEmail(ctx, in.Email)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, errs.Validationf(op, "user with email '%s' already exists", in.Email)
		}
		users = append(users, entity.NewUser(in.Name, in.Email, in.Age))
	}
	created, err := s.Repo.CreateMany(ctx, users)
	if err != nil {
		return nil, err
	}
	helpers.LogInfo(s.Logger, "users created", logrus.Fields{"count": len(created)})
	for _, u := range created {
		s.publish(ctx, event.Created(u))
	}
	return created, nil
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*entity.User, error) {
	if err := requireID("Service.GetUserByID", id); err != nil {
		return nil, err
	}
	return s.Repo.FindByID(ctx, userID(id))
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, errs.Validation("Service.GetUserByEmail", "email cannot be null or empty")
	}
	return s.Repo.FindByEmail(ctx, email)
}

func (s *Service) GetAllUsers(ctx context.Context) ([]*entity.User, error) {
	return s.Repo.FindAll(ctx)
}

func validAgeRange(op string, minAge, maxAge int) error {
	switch {
	case minAge < 0 || maxAge < 0:
		return errs.Validation(op, "age cannot be negative")
	case minAge > maxAge:
		return errs.Validation(op, "minimum age cannot be greater than maximum age")
	case maxAge > entity.MaxAge:
		return errs.Validationf(op, "maximum age seems unrealistic (over %d)", entity.MaxAge)
	}
	return nil
}

func (s *Service) GetUsersByAgeRange(ctx context.Context, minAge, maxAge int) ([]*entity.User, error) {
	if err := validAgeRange("Service.GetUsersByAgeRange", minAge, maxAge); err != nil {
		return nil, err
	}
	return s.Repo.FindByAgeRange(ctx, minAge, maxAge)
}

func namePattern(op, pattern string) (string, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return "", errs.Validation(op, "name pattern cannot be null or empty")
	}
	if len([]rune(pattern)) < 2 {
		return "", errs.Validation(op, "name pattern must be at least 2 characters long")
	}
	return pattern, nil
}

func (s *Service) SearchUsersByName(ctx context.Context, pattern string) ([]*entity.User, error) {
	pattern, err := namePattern("Service.SearchUsersByName", pattern)
	if err != nil {
		return nil, err
	}
	return s.Repo.FindByNameContaining(ctx, pattern)
}

// SearchUsers applies the name pattern rules, then prefers the full-text index. The substring
// name scan answers when the index fails or has no hits.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]*entity.User, error) {
	q, err := namePattern("Service.SearchUsers", q)
	if err != nil {
		return nil, err
	}
	if s.Search != nil {
		users, err := s.Search.Search(ctx, q, size)
		switch {
		case err != nil:
			helpers.LogWarn(s.Logger, "search index failed, falling back to name scan", logrus.Fields{"q": q, "error": err.Error()})
		case len(users) > 0:
			return users, nil
		}
	}
	return s.Repo.FindByNameContaining(ctx, q)
}

// UpdateUser replaces name, email and age of an existing user. updated_at is always refreshed,
// so an existing user reports true even when name, email and age are unchanged.
func (s *Service) UpdateUser(ctx context.Context, id, name, email string, age int) (bool, error) {
	const op = "Service.UpdateUser"
	if err := requireID(op, id); err != nil {
		return false, err
	}
	id = userID(id)
	in := UserInput{Name: name, Email: email, Age: age}.normalized()
	if err := s.check(op, in); err != nil {
		return false, err
	}
	existing, err := s.existing(ctx, op, id)
	if err != nil {
		return false, err
	}
	if err := s.emailFree(ctx, op, existing.ID, in.Email); err != nil {
		return false, err
	}
	existing.SetName(in.Name)
	existing.SetEmail(in.Email)
	existing.SetAge(in.Age)
	ok, err := s.Repo.Update(ctx, id, existing)
	if err != nil {
		return false, err
	}
	if ok {
		helpers.LogInfo(s.Logger, "user updated", logrus.Fields{"user_id": id})
		s.publish(ctx, event.Updated(existing))
	}
	return ok, nil
}

// UpdateUserEmail changes only the email. Re-applying the current email succeeds.
func (s *Service) UpdateUserEmail(ctx context.Context, id, email string) (bool, error) {
	const op = "Service.UpdateUserEmail"
	if err := requireID(op, id); err != nil {
		return false, err
	}
	id = userID(id)
	in := emailInput{Email: strings.TrimSpace(email)}
	if err := s.check(op, in); err != nil {
		return false, err
	}
	existing, err := s.existing(ctx, op, id)
	if err != nil {
		return false, err
	}
	if err := s.emailFree(ctx, op, existing.ID, in.Email); err != nil {
		return false, err
	}
	ok, err := s.Repo.UpdateEmail(ctx, id, in.Email)
	if err != nil {
		return false, err
	}
	if ok {
		existing.SetEmail(in.Email)
		helpers.LogInfo(s.Logger, "user email updated", logrus.Fields{"user_id": id})
		s.publish(ctx, event.Updated(existing))
	}
	return ok, nil
}

// existing loads id, turning absence into a validation error.
func (s *Service) existing(ctx context.Context, op, id string) (*entity.User, error) {
	u, err := s.Repo.FindByID(ctx, id)
	if errs.IsNotFound(err) {
		return nil, errs.Validationf(op, "user with id '%s' not found", id)
	}
	return u, err
}

// emailFree fails when a user other than id owns email. id must be the stored id.
func (s *Service) emailFree(ctx context.Context, op, id, email string) error {
	owner, err := s.Repo.FindByEmail(ctx, email)
	switch {
	case errs.IsNotFound(err):
		return nil
	case err != nil:
		return err
	case owner.ID != id:
		return errs.Validationf(op, "another user with email '%s' already exists", email)
	}
	return nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) (bool, error) {
	const op = "Service.DeleteUser"
	if err := requireID(op, id); err != nil {
		return false, err
	}
	id = userID(id)
	found, err := s.Repo.ExistsByID(ctx, id)
	if err != nil {
		return false, err
	}
	if !found {
		return false, errs.Validationf(op, "user with id '%s' not found", id)
	}
	ok, err := s.Repo.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if ok {
		helpers.LogInfo(s.Logger, "user deleted", logrus.Fields{"user_id": id})
		s.publish(ctx, event.Deleted(id))
	} else {
		helpers.LogWarn(s.Logger, "user deletion removed nothing", logrus.Fields{"user_id": id})
	}
	return ok, nil
}

// DeleteUsersByAgeRange removes every user with minAge <= age <= maxAge. confirm must be true.
func (s *Service) DeleteUsersByAgeRange(ctx context.Context, minAge, maxAge int, confirm bool) (int64, error) {
	const op = "Service.DeleteUsersByAgeRange"
	if !confirm {
		return 0, errs.Validation(op, "deletion not confirmed, this operation is irreversible")
	}
	if minAge < 0 || maxAge < 0 || minAge > maxAge {
		return 0, errs.Validation(op, "invalid age range")
	}
	n, err := s.Repo.DeleteByAgeRange(ctx, minAge, maxAge)
	if err != nil {
		return 0, err
	}
	helpers.LogInfo(s.Logger, "users deleted by age range", logrus.Fields{"min_age": minAge, "max_age": maxAge, "deleted": n})
	if n > 0 {
		s.publish(ctx, event.DeletedByAgeRange(minAge, maxAge, n))
	}
	return n, nil
}

// DeleteAllUsers empties the collection. Used by seeding and the demo walkthrough.
func (s *Service) DeleteAllUsers(ctx context.Context) (int64, error) {
	n, err := s.Repo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	helpers.LogInfo(s.Logger, "all users deleted", logrus.Fields{"deleted": n})
	if n > 0 {
		s.publish(ctx, event.DeletedAll(n))
	}
	return n, nil
}

func (s *Service) UserExists(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, nil
	}
	return s.Repo.ExistsByID(ctx, strings.TrimSpace(id))
}

func (s *Service) EmailExists(ctx context.Context, email string) (bool, error) {
	if strings.TrimSpace(email) == "" {
		return false, nil
	}
	return s.Repo.ExistsByEmail(ctx, strings.TrimSpace(email))
}
