package firestore

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/oksasatya/go-firestore-crud/internal/domain/entity"
	"github.com/oksasatya/go-firestore-crud/internal/domain/errs"
	"github.com/oksasatya/go-firestore-crud/pkg/helpers"
)

func newRepo(mt *mtest.T) *UserRepository {
	return NewUserRepository(mt.Coll, helpers.NewNopLogger())
}

func ns(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func userDoc(id primitive.ObjectID, name, email string, age int) bson.D {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: name},
		{Key: "email", Value: email},
		{Key: "age", Value: age},
		{Key: "created_at", Value: now},
		{Key: "updated_at", Value: now},
	}
}

func startedCommands(mt *mtest.T) []string {
	var names []string
	for _, ev := range mt.GetAllStartedEvents() {
		names = append(names, ev.CommandName)
	}
	return names
}

func TestUserRepository_Create(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("assigns id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		got, err := newRepo(mt).Create(ctx, entity.NewUser("John Doe", "john.doe@example.com", 30))
		if err != nil {
			mt.Fatalf("Create: %v", err)
		}
		if _, err := primitive.ObjectIDFromHex(got.ID); err != nil {
			mt.Fatalf("expected hex object id, got %q", got.ID)
		}
	})

	mt.Run("invalid user never reaches the store", func(mt *mtest.T) {
		_, err := newRepo(mt).Create(ctx, entity.NewUser("", "bad", 0))
		if !errs.IsValidation(err) {
			mt.Fatalf("expected validation error, got %v", err)
		}
		if n := len(startedCommands(mt)); n != 0 {
			mt.Fatalf("expected no commands, got %d", n)
		}
	})

	mt.Run("nil user", func(mt *mtest.T) {
		if _, err := newRepo(mt).Create(ctx, nil); !errs.IsValidation(err) {
			mt.Fatalf("expected validation error, got %v", err)
		}
	})

	mt.Run("duplicate key maps to validation", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key error"}))
		_, err := newRepo(mt).Create(ctx, entity.NewUser("John Doe", "john.doe@example.com", 30))
		if !errs.IsValidation(err) {
			mt.Fatalf("expected validation error, got %v", err)
		}
	})

	mt.Run("command failure is a store error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 1, Message: "boom"}))
		_, err := newRepo(mt).Create(ctx, entity.NewUser("John Doe", "john.doe@example.com", 30))
		if !errs.IsStore(err) {
			mt.Fatalf("expected store error, got %v", err)
		}
	})
}

func TestUserRepository_CreateMany(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	batch := func() []*entity.User {
		return []*entity.User{
			entity.NewUser("Alice Smith", "alice@example.com", 28),
			entity.NewUser("Bob Johnson", "bob@example.com", 35),
		}
	}

	mt.Run("ids for every element", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		got, err := newRepo(mt).CreateMany(ctx, batch())
		if err != nil {
			mt.Fatalf("CreateMany: %v", err)
		}
		if len(got) != 2 || got[0].ID == "" || got[0].ID == got[1].ID {
			mt.Fatalf("unexpected ids %+v", got)
		}
	})

	mt.Run("empty list", func(mt *mtest.T) {
		if _, err := newRepo(mt).CreateMany(ctx, nil); !errs.IsValidation(err) {
			mt.Fatalf("expected validation error, got %v", err)
		}
	})

	mt.Run("one invalid element writes nothing", func(mt *mtest.T) {
		users := batch()
		users[1].Age = 0
		if _, err := newRepo(mt).CreateMany(ctx, users); !errs.IsValidation(err) {
			mt.Fatalf("expected validation error, got %v", err)
		}
		if n := len(startedCommands(mt)); n != 0 {
			mt.Fatalf("expected no commands, got %d", n)
		}
	})

	mt.Run("failed insert is compensated", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 1, Message: "boom"}),
			bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}},
		)
		_, err := newRepo(mt).CreateMany(ctx, batch())
		if !errs.IsStore(err) {
			mt.Fatalf("expected store error, got %v", err)
		}
		cmds := startedCommands(mt)
		if len(cmds) != 2 || cmds[0] != "insert" || cmds[1] != "delete" {
			mt.Fatalf("expected insert then delete, got %v", cmds)
		}
	})
}

func TestUserRepository_FindByID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("found", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, userDoc(id, "Jane Doe", "jane@example.com", 25)))
		got, err := newRepo(mt).FindByID(ctx, id.Hex())
		if err != nil {
			mt.Fatalf("FindByID: %v", err)
		}
		if got.ID != id.Hex() || got.Email != "jane@example.com" || got.Age != 25 {
			mt.Fatalf("unexpected user %+v", got)
		}
	})

	mt.Run("absent", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch))
		_, err := newRepo(mt).FindByID(ctx, primitive.NewObjectID().Hex())
		if !errs.IsNotFound(err) {
			mt.Fatalf("expected not found, got %v", err)
		}
	})

	mt.Run("malformed and blank ids", func(mt *mtest.T) {
		for _, id := range []string{"", "   ", "not-an-id"} {
			if _, err := newRepo(mt).FindByID(ctx, id); !errs.IsNotFound(err) {
				mt.Fatalf("id %q: expected not found, got %v", id, err)
			}
		}
		if n := len(startedCommands(mt)); n != 0 {
			mt.Fatalf("expected no commands, got %d", n)
		}
	})
}

func TestUserRepository_Queries(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("find all", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch,
			userDoc(primitive.NewObjectID(), "Alice Smith", "alice@example.com", 28),
			userDoc(primitive.NewObjectID(), "Bob Johnson", "bob@example.com", 35),
		))
		got, err := newRepo(mt).FindAll(ctx)
		if err != nil || len(got) != 2 {
			mt.Fatalf("FindAll = %d users, %v", len(got), err)
		}
	})

	mt.Run("age range filter", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch))
		if _, err := newRepo(mt).FindByAgeRange(ctx, 25, 35); err != nil {
			mt.Fatalf("FindByAgeRange: %v", err)
		}
		var cmd struct {
			Filter struct {
				Age struct {
					Gte int `bson:"$gte"`
					Lte int `bson:"$lte"`
				} `bson:"age"`
			} `bson:"filter"`
		}
		if err := bson.Unmarshal(mt.GetStartedEvent().Command, &cmd); err != nil {
			mt.Fatalf("decode command: %v", err)
		}
		if cmd.Filter.Age.Gte != 25 || cmd.Filter.Age.Lte != 35 {
			mt.Fatalf("unexpected filter %+v", cmd.Filter)
		}
	})

	mt.Run("invalid age range", func(mt *mtest.T) {
		for _, r := range [][2]int{{-1, 10}, {40, 30}} {
			if _, err := newRepo(mt).FindByAgeRange(ctx, r[0], r[1]); !errs.IsValidation(err) {
				mt.Fatalf("range %v: expected validation error, got %v", r, err)
			}
		}
	})

	mt.Run("name pattern is quoted and case-insensitive", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch))
		if _, err := newRepo(mt).FindByNameContaining(ctx, "a.b"); err != nil {
			mt.Fatalf("FindByNameContaining: %v", err)
		}
		filter := mt.GetStartedEvent().Command.Lookup("filter").Document()
		pattern, opts := filter.Lookup("name").Regex()
		if pattern != `a\.b` || opts != "i" {
			mt.Fatalf("unexpected regex /%s/%s", pattern, opts)
		}
	})

	mt.Run("blank name pattern", func(mt *mtest.T) {
		got, err := newRepo(mt).FindByNameContaining(ctx, " ")
		if err != nil || len(got) != 0 {
			mt.Fatalf("expected empty result, got %v %v", got, err)
		}
	})

	mt.Run("count", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, bson.D{{Key: "n", Value: int32(3)}}))
		n, err := newRepo(mt).Count(ctx)
		if err != nil || n != 3 {
			mt.Fatalf("Count = %d, %v", n, err)
		}
	})

	mt.Run("exists by email", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, bson.D{{Key: "n", Value: int32(1)}}))
		ok, err := newRepo(mt).ExistsByEmail(ctx, "alice@example.com")
		if err != nil || !ok {
			mt.Fatalf("ExistsByEmail = %v, %v", ok, err)
		}
	})

	mt.Run("exists with malformed id", func(mt *mtest.T) {
		ok, err := newRepo(mt).ExistsByID(ctx, "zzz")
		if err != nil || ok {
			mt.Fatalf("ExistsByID = %v, %v", ok, err)
		}
	})
}

func TestUserRepository_Mutations(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	id := primitive.NewObjectID().Hex()

	mt.Run("update modified", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}})
		ok, err := newRepo(mt).Update(ctx, id, entity.NewUser("John Doe", "john.doe@example.com", 31))
		if err != nil || !ok {
			mt.Fatalf("Update = %v, %v", ok, err)
		}
	})

	mt.Run("update with identical values reports false", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 0}})
		ok, err := newRepo(mt).Update(ctx, id, entity.NewUser("John Doe", "john.doe@example.com", 31))
		if err != nil || ok {
			mt.Fatalf("Update = %v, %v", ok, err)
		}
	})

	mt.Run("update argument checks", func(mt *mtest.T) {
		if _, err := newRepo(mt).Update(ctx, "", entity.NewUser("John Doe", "john.doe@example.com", 31)); !errs.IsValidation(err) {
			mt.Fatalf("blank id: expected validation error, got %v", err)
		}
		if _, err := newRepo(mt).Update(ctx, id, entity.NewUser("John Doe", "john.doe@example.com", 0)); !errs.IsValidation(err) {
			mt.Fatalf("invalid data: expected validation error, got %v", err)
		}
		ok, err := newRepo(mt).Update(ctx, "bogus", entity.NewUser("John Doe", "john.doe@example.com", 31))
		if err != nil || ok {
			mt.Fatalf("malformed id: Update = %v, %v", ok, err)
		}
	})

	mt.Run("update email", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}})
		ok, err := newRepo(mt).UpdateEmail(ctx, id, "new@example.com")
		if err != nil || !ok {
			mt.Fatalf("UpdateEmail = %v, %v", ok, err)
		}
		var cmd struct {
			Updates []struct {
				U struct {
					Set bson.M `bson:"$set"`
				} `bson:"u"`
			} `bson:"updates"`
		}
		if err := bson.Unmarshal(mt.GetStartedEvent().Command, &cmd); err != nil {
			mt.Fatalf("decode command: %v", err)
		}
		if len(cmd.Updates) != 1 {
			mt.Fatalf("expected one update statement, got %d", len(cmd.Updates))
		}
		set := cmd.Updates[0].U.Set
		if set["email"] != "new@example.com" {
			mt.Fatalf("unexpected $set %v", set)
		}
		if _, ok := set["name"]; ok {
			mt.Fatalf("UpdateEmail must only set email and updated_at")
		}
	})

	mt.Run("delete", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}})
		ok, err := newRepo(mt).Delete(ctx, id)
		if err != nil || !ok {
			mt.Fatalf("Delete = %v, %v", ok, err)
		}
	})

	mt.Run("delete blank and malformed", func(mt *mtest.T) {
		if _, err := newRepo(mt).Delete(ctx, ""); !errs.IsValidation(err) {
			mt.Fatalf("expected validation error, got %v", err)
		}
		ok, err := newRepo(mt).Delete(ctx, "bogus")
		if err != nil || ok {
			mt.Fatalf("Delete = %v, %v", ok, err)
		}
	})

	mt.Run("delete by age range", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 4}})
		n, err := newRepo(mt).DeleteByAgeRange(ctx, 20, 30)
		if err != nil || n != 4 {
			mt.Fatalf("DeleteByAgeRange = %d, %v", n, err)
		}
		if _, err := newRepo(mt).DeleteByAgeRange(ctx, 30, 20); !errs.IsValidation(err) {
			mt.Fatalf("expected validation error, got %v", err)
		}
	})

	mt.Run("delete all", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 7}})
		n, err := newRepo(mt).DeleteAll(ctx)
		if err != nil || n != 7 {
			mt.Fatalf("DeleteAll = %d, %v", n, err)
		}
	})
}
