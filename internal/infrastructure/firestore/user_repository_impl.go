package firestore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oksasatya/go-firestore-crud/internal/domain/entity"
	"github.com/oksasatya/go-firestore-crud/internal/domain/errs"
	"github.com/oksasatya/go-firestore-crud/internal/domain/repository"
	"github.com/oksasatya/go-firestore-crud/pkg/helpers"
)

type UserRepository struct {
	coll   *mongo.Collection
	logger *logrus.Logger
}

func NewUserRepository(coll *mongo.Collection, logger *logrus.Logger) *UserRepository {
	return &UserRepository{coll: coll, logger: logger}
}

func (r *UserRepository) storeErr(op string, err error, fields logrus.Fields) error {
	if fields == nil {
		fields = logrus.Fields{}
	}
	fields["op"] = op
	helpers.LogError(r.logger, "firestore operation failed", err, fields)
	return errs.Store(op, err)
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) (*entity.User, error) {
	const op = "UserRepository.Create"
	if !u.IsValid() {
		return nil, errs.Validation(op, "user data is invalid")
	}
	doc := toDocument(u)
	doc.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, errs.Validation(op, "email already exists")
		}
		return nil, r.storeErr(op, err, logrus.Fields{"email": u.Email})
	}
	helpers.LogDebug(r.logger, "user inserted", logrus.Fields{"user_id": doc.ID.Hex()})
	return doc.toEntity(), nil
}

// CreateMany inserts the batch in one ordered write. When the write fails, documents
// already written for the batch are removed before the failure is returned.
func (r *UserRepository) CreateMany(ctx context.Context, users []*entity.User) ([]*entity.User, error) {
	const op = "UserRepository.CreateMany"
	if len(users) == 0 {
		return nil, errs.Validation(op, "user list cannot be empty")
	}
	for i, u := range users {
		if !u.IsValid() {
			return nil, errs.Validationf(op, "user at index %d is invalid", i)
		}
	}

	docs := make([]any, len(users))
	ids := make([]primitive.ObjectID, len(users))
	out := make([]*entity.User, len(users))
	for i, u := range users {
		doc := toDocument(u)
		doc.ID = primitive.NewObjectID()
		ids[i] = doc.ID
		docs[i] = doc
		out[i] = doc.toEntity()
	}

	if _, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		if _, cerr := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); cerr != nil {
			helpers.LogError(r.logger, "compensating delete failed", cerr, logrus.Fields{"batch": len(ids)})
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, errs.Validation(op, "email already exists")
		}
		return nil, r.storeErr(op, err, logrus.Fields{"batch": len(ids)})
	}
	return out, nil
}

func (r *UserRepository) findOne(ctx context.Context, op string, filter bson.M) (*entity.User, error) {
	var doc userDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.NotFound(op, "user not found")
	}
	if err != nil {
		return nil, r.storeErr(op, err, nil)
	}
	return doc.toEntity(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	const op = "UserRepository.FindByID"
	oid, ok := parseID(strings.TrimSpace(id))
	if !ok {
		return nil, errs.NotFound(op, "user not found")
	}
	return r.findOne(ctx, op, bson.M{"_id": oid})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	const op = "UserRepository.FindByEmail"
	if strings.TrimSpace(email) == "" {
		return nil, errs.NotFound(op, "user not found")
	}
	return r.findOne(ctx, op, bson.M{"email": email})
}

func (r *UserRepository) find(ctx context.Context, op string, filter any) ([]*entity.User, error) {
	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, r.storeErr(op, err, nil)
	}
	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, r.storeErr(op, err, nil)
	}
	out := make([]*entity.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toEntity())
	}
	return out, nil
}

func (r *UserRepository) FindAll(ctx context.Context) ([]*entity.User, error) {
	return r.find(ctx, "UserRepository.FindAll", bson.D{})
}

func ageRange(minAge, maxAge int) bson.M {
	return bson.M{"age": bson.M{"$gte": minAge, "$lte": maxAge}}
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

func (r *UserRepository) FindByAgeRange(ctx context.Context, minAge, maxAge int) ([]*entity.User, error) {
	const op = "UserRepository.FindByAgeRange"
	if err := checkRange(op, minAge, maxAge); err != nil {
		return nil, err
	}
	return r.find(ctx, op, ageRange(minAge, maxAge))
}

// FindByNameContaining matches the literal pattern anywhere in the name, ignoring case.
func (r *UserRepository) FindByNameContaining(ctx context.Context, pattern string) ([]*entity.User, error) {
	if strings.TrimSpace(pattern) == "" {
		return []*entity.User{}, nil
	}
	filter := bson.M{"name": primitive.Regex{Pattern: regexp.QuoteMeta(pattern), Options: "i"}}
	return r.find(ctx, "UserRepository.FindByNameContaining", filter)
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, r.storeErr("UserRepository.Count", err, nil)
	}
	return n, nil
}

func (r *UserRepository) updateOne(ctx context.Context, op string, oid primitive.ObjectID, set bson.M) (bool, error) {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, errs.Validation(op, "email already exists")
		}
		return false, r.storeErr(op, err, logrus.Fields{"user_id": oid.Hex()})
	}
	return res.ModifiedCount == 1, nil
}

func (r *UserRepository) Update(ctx context.Context, id string, u *entity.User) (bool, error) {
	const op = "UserRepository.Update"
	if strings.TrimSpace(id) == "" {
		return false, errs.Validation(op, "user id cannot be null or empty")
	}
	if !u.IsValid() {
		return false, errs.Validation(op, "user data is invalid")
	}
	oid, ok := parseID(id)
	if !ok {
		return false, nil
	}
	return r.updateOne(ctx, op, oid, bson.M{
		"name":       u.Name,
		"email":      u.Email,
		"age":        u.Age,
		"updated_at": u.UpdatedAt,
	})
}

func (r *UserRepository) UpdateEmail(ctx context.Context, id, email string) (bool, error) {
	const op = "UserRepository.UpdateEmail"
	if strings.TrimSpace(id) == "" {
		return false, errs.Validation(op, "user id cannot be null or empty")
	}
	if !entity.LooksLikeEmail(email) {
		return false, errs.Validation(op, "email is invalid")
	}
	oid, ok := parseID(id)
	if !ok {
		return false, nil
	}
	return r.updateOne(ctx, op, oid, bson.M{
		"email":      email,
		"updated_at": time.Now().UTC(),
	})
}

func (r *UserRepository) Delete(ctx context.Context, id string) (bool, error) {
	const op = "UserRepository.Delete"
	if strings.TrimSpace(id) == "" {
		return false, errs.Validation(op, "user id cannot be null or empty")
	}
	oid, ok := parseID(id)
	if !ok {
		return false, nil
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, r.storeErr(op, err, logrus.Fields{"user_id": id})
	}
	return res.DeletedCount == 1, nil
}

func (r *UserRepository) deleteMany(ctx context.Context, op string, filter any) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, r.storeErr(op, err, nil)
	}
	return res.DeletedCount, nil
}

func (r *UserRepository) DeleteByAgeRange(ctx context.Context, minAge, maxAge int) (int64, error) {
	const op = "UserRepository.DeleteByAgeRange"
	if err := checkRange(op, minAge, maxAge); err != nil {
		return 0, err
	}
	return r.deleteMany(ctx, op, ageRange(minAge, maxAge))
}

func (r *UserRepository) DeleteAll(ctx context.Context) (int64, error) {
	return r.deleteMany(ctx, "UserRepository.DeleteAll", bson.D{})
}

func (r *UserRepository) exists(ctx context.Context, op string, filter bson.M) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, r.storeErr(op, err, nil)
	}
	return n > 0, nil
}

func (r *UserRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	oid, ok := parseID(strings.TrimSpace(id))
	if !ok {
		return false, nil
	}
	return r.exists(ctx, "UserRepository.ExistsByID", bson.M{"_id": oid})
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if strings.TrimSpace(email) == "" {
		return false, nil
	}
	return r.exists(ctx, "UserRepository.ExistsByEmail", bson.M{"email": email})
}

var _ repository.UserRepository = (*UserRepository)(nil)
