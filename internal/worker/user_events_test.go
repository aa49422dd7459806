package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/oksasatya/go-firestore-crud/internal/domain/entity"
	"github.com/oksasatya/go-firestore-crud/internal/domain/event"
	"github.com/oksasatya/go-firestore-crud/pkg/helpers"
)

type fakeIndex struct {
	docs    map[string]event.UserSnapshot
	ranges  [][2]int
	cleared bool
	err     error
}

func newFakeIndex() *fakeIndex { return &fakeIndex{docs: map[string]event.UserSnapshot{}} }

func (f *fakeIndex) Upsert(_ context.Context, u *event.UserSnapshot) error {
	if f.err != nil {
		return f.err
	}
	f.docs[u.ID] = *u
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, id string) error {
	delete(f.docs, id)
	return f.err
}

func (f *fakeIndex) DeleteByAgeRange(_ context.Context, minAge, maxAge int) error {
	f.ranges = append(f.ranges, [2]int{minAge, maxAge})
	return f.err
}

func (f *fakeIndex) DeleteAll(context.Context) error {
	f.cleared = true
	return f.err
}

type ackRecorder struct {
	acked, nacked, requeued int
}

func (a *ackRecorder) Ack(uint64, bool) error { a.acked++; return nil }

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	if requeue {
		a.requeued++
	}
	return nil
}

func (a *ackRecorder) Reject(_ uint64, requeue bool) error { return a.Nack(0, false, requeue) }

func body(t *testing.T, ev event.UserEvent) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	idx := newFakeIndex()
	w := NewUserEvents(idx, helpers.NewNopLogger())

	u := entity.NewUser("John Doe", "john@example.com", 30)
	u.ID = "abc"
	if err := w.Apply(ctx, event.Created(u)); err != nil {
		t.Fatalf("created: %v", err)
	}
	u.SetAge(31)
	if err := w.Apply(ctx, event.Updated(u)); err != nil {
		t.Fatalf("updated: %v", err)
	}
	if idx.docs["abc"].Age != 31 {
		t.Fatalf("expected upserted age 31, got %+v", idx.docs["abc"])
	}
	if err := w.Apply(ctx, event.Deleted("abc")); err != nil {
		t.Fatalf("deleted: %v", err)
	}
	if _, ok := idx.docs["abc"]; ok {
		t.Fatalf("document should be removed")
	}
	if err := w.Apply(ctx, event.DeletedByAgeRange(40, 150, 3)); err != nil || len(idx.ranges) != 1 || idx.ranges[0] != [2]int{40, 150} {
		t.Fatalf("range delete: %v %v", err, idx.ranges)
	}
	if err := w.Apply(ctx, event.DeletedAll(2)); err != nil || !idx.cleared {
		t.Fatalf("delete all: %v", err)
	}
}

func TestApply_Malformed(t *testing.T) {
	w := NewUserEvents(newFakeIndex(), helpers.NewNopLogger())
	bad := []event.UserEvent{
		{Type: event.UserCreated},
		{Type: event.UserDeleted},
		{Type: event.UsersDeletedByRange, MinAge: 50, MaxAge: 10},
		{Type: "user.renamed"},
	}
	for _, ev := range bad {
		if err := w.Apply(context.Background(), ev); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%+v: expected ErrMalformed, got %v", ev, err)
		}
	}
	if err := w.Handle(context.Background(), []byte("{")); !errors.Is(err, ErrMalformed) {
		t.Fatalf("bad json: expected ErrMalformed, got %v", err)
	}
}

func TestRun_AckNack(t *testing.T) {
	idx := newFakeIndex()
	w := NewUserEvents(idx, helpers.NewNopLogger())
	ack := &ackRecorder{}

	u := entity.NewUser("John Doe", "john@example.com", 30)
	u.ID = "abc"
	deliveries := make(chan amqp.Delivery, 3)
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: body(t, event.Created(u))}
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("not json")}
	close(deliveries)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	w.Run(ctx, deliveries)

	if ack.acked != 1 || ack.nacked != 1 || ack.requeued != 0 {
		t.Fatalf("acks=%d nacks=%d requeued=%d", ack.acked, ack.nacked, ack.requeued)
	}

	idx.err = errors.New("es down")
	failing := make(chan amqp.Delivery, 2)
	failing <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: body(t, event.Created(u))}
	failing <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 4, Body: body(t, event.Created(u)), Redelivered: true}
	close(failing)
	w.Run(ctx, failing)
	if ack.nacked != 3 || ack.requeued != 1 {
		t.Fatalf("index failures: nacks=%d requeued=%d", ack.nacked, ack.requeued)
	}
}
