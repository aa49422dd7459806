package repository

import (
	"context"

	"github.com/oksasatya/go-firestore-crud/internal/domain/entity"
)

// UserRepository defines the interface for user-related document store operations.
//
// Lookups by a blank or malformed id report errs.ErrNotFound (Find*) or false
// (Exists*, Update*, Delete). Unexpected store failures carry errs.ErrStore.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) (*entity.User, error)
	CreateMany(ctx context.Context, users []*entity.User) ([]*entity.User, error)

	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindAll(ctx context.Context) ([]*entity.User, error)
	FindByAgeRange(ctx context.Context, minAge, maxAge int) ([]*entity.User, error)
	FindByNameContaining(ctx context.Context, pattern string) ([]*entity.User, error)
	Count(ctx context.Context) (int64, error)

	// Update overwrites name, email, age and updated_at. It reports whether
	// exactly one document was modified.
	Update(ctx context.Context, id string, u *entity.User) (bool, error)
	UpdateEmail(ctx context.Context, id, email string) (bool, error)

	Delete(ctx context.Context, id string) (bool, error)
	DeleteByAgeRange(ctx context.Context, minAge, maxAge int) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)

	ExistsByID(ctx context.Context, id string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
