// Package memory is a process-local UserRepository for tests and offline demos.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/oksasatya/go-firestore-crud/internal/domain/entity"
	"github.com/oksasatya/go-firestore-crud/internal/domain/errs"
	"github.com/oksasatya/go-firestore-crud/internal/domain/repository"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]entity.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]entity.User)}
}

func clone(u entity.User) *entity.User { return &u }

func validID(id string) bool {
	_, ok := key(id)
	return ok
}

// key returns the stored form of id. ObjectID hex is accepted in either case.
func key(id string) (string, bool) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return "", false
	}
	return oid.Hex(), true
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) (*entity.User, error) {
	if !u.IsValid() {
		return nil, errs.Validation("UserRepository.Create", "user data is invalid")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *u
	stored.ID = primitive.NewObjectID().Hex()
	r.users[stored.ID] = stored
	return clone(stored), nil
}

func (r *UserRepository) CreateMany(_ context.Context, users []*entity.User) ([]*entity.User, error) {
	const op = "UserRepository.CreateMany"
	if len(users) == 0 {
		return nil, errs.Validation(op, "user list cannot be empty")
	}
	for i, u := range users {
		if !u.IsValid() {
			return nil, errs.Validationf(op, "user at index %d is invalid", i)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.User, 0, len(users))
	for _, u := range users {
		stored := *u
		stored.ID = primitive.NewObjectID().Hex()
		r.users[stored.ID] = stored
		out = append(out, clone(stored))
	}
	return out, nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, _ := key(id)
	u, ok := r.users[k]
	if !ok {
		return nil, errs.NotFound("UserRepository.FindByID", "user not found")
	}
	return clone(u), nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if strings.TrimSpace(email) != "" {
		for _, u := range r.users {
			if u.Email == email {
				return clone(u), nil
			}
		}
	}
	return nil, errs.NotFound("UserRepository.FindByEmail", "user not found")
}

func (r *UserRepository) filter(keep func(entity.User) bool) []*entity.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.User, 0, len(r.users))
	for _, u := range r.users {
		if keep(u) {
			out = append(out, clone(u))
		}
	}
	return out
}

func (r *UserRepository) FindAll(_ context.Context) ([]*entity.User, error) {
	return r.filter(func(entity.User) bool { return true }), nil
}

func checkRange(op string, minAge, maxAge int) error {
	if minAge < 0 || maxAge < 0 {
		return errs.Validation(op, "age values cannot be negative")
	}
	if minAge > maxAge {
		return errs.Validation(op, "minimum age cannot be greater than maximum age")
	}
	return nil
}

func inRange(minAge, maxAge int) func(entity.User) bool {
	return func(u entity.User) bool { return u.Age >= minAge && u.Age <= maxAge }
}

func (r *UserRepository) FindByAgeRange(_ context.Context, minAge, maxAge int) ([]*entity.User, error) {
	if err := checkRange("UserRepository.FindByAgeRange", minAge, maxAge); err != nil {
		return nil, err
	}
	return r.filter(inRange(minAge, maxAge)), nil
}

func (r *UserRepository) FindByNameContaining(_ context.Context, pattern string) ([]*entity.User, error) {
	if strings.TrimSpace(pattern) == "" {
		return []*entity.User{}, nil
	}
	needle := strings.ToLower(pattern)
	return r.filter(func(u entity.User) bool {
		return strings.Contains(strings.ToLower(u.Name), needle)
	}), nil
}

func (r *UserRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}

func (r *UserRepository) Update(_ context.Context, id string, u *entity.User) (bool, error) {
	const op = "UserRepository.Update"
	if strings.TrimSpace(id) == "" {
		return false, errs.Validation(op, "user id cannot be null or empty")
	}
	if !u.IsValid() {
		return false, errs.Validation(op, "user data is invalid")
	}
	k, valid := key(id)
	if !valid {
		return false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.users[k]
	if !ok || (cur.SameFields(u) && cur.UpdatedAt.Equal(u.UpdatedAt)) {
		return false, nil
	}
	cur.Name, cur.Email, cur.Age, cur.UpdatedAt = u.Name, u.Email, u.Age, u.UpdatedAt
	r.users[k] = cur
	return true, nil
}

func (r *UserRepository) UpdateEmail(_ context.Context, id, email string) (bool, error) {
	const op = "UserRepository.UpdateEmail"
	if strings.TrimSpace(id) == "" {
		return false, errs.Validation(op, "user id cannot be null or empty")
	}
	if !entity.LooksLikeEmail(email) {
		return false, errs.Validation(op, "email is invalid")
	}
	k, _ := key(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.users[k]
	if !ok {
		return false, nil
	}
	cur.Email = email
	cur.UpdatedAt = time.Now().UTC()
	r.users[k] = cur
	return true, nil
}

func (r *UserRepository) Delete(_ context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, errs.Validation("UserRepository.Delete", "user id cannot be null or empty")
	}
	k, _ := key(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[k]; !ok {
		return false, nil
	}
	delete(r.users, k)
	return true, nil
}

func (r *UserRepository) DeleteByAgeRange(_ context.Context, minAge, maxAge int) (int64, error) {
	if err := checkRange("UserRepository.DeleteByAgeRange", minAge, maxAge); err != nil {
		return 0, err
	}
	keep := inRange(minAge, maxAge)
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, u := range r.users {
		if keep(u) {
			delete(r.users, id)
			n++
		}
	}
	return n, nil
}

func (r *UserRepository) DeleteAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.users))
	r.users = make(map[string]entity.User)
	return n, nil
}

func (r *UserRepository) ExistsByID(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, _ := key(id)
	_, ok := r.users[k]
	return ok, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	return err == nil, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
