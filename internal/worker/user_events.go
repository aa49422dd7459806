// Package worker consumes user lifecycle events and keeps the search mirror in step.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-firestore-crud/internal/domain/event"
	"github.com/oksasatya/go-firestore-crud/pkg/helpers"
)

const applyTimeout = 15 * time.Second

// ErrMalformed marks a message that can never be applied and must not be requeued.
var ErrMalformed = errors.New("malformed user event")

// Index is the search mirror the worker writes to. search.UserIndex satisfies it.
type Index interface {
	Upsert(ctx context.Context, u *event.UserSnapshot) error
	Delete(ctx context.Context, id string) error
	DeleteByAgeRange(ctx context.Context, minAge, maxAge int) error
	DeleteAll(ctx context.Context) error
}

type UserEvents struct {
	Index  Index
	Logger *logrus.Logger
}

func NewUserEvents(idx Index, logger *logrus.Logger) *UserEvents {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &UserEvents{Index: idx, Logger: logger}
}

// Apply mirrors one event into the index.
func (w *UserEvents) Apply(ctx context.Context, ev event.UserEvent) error {
	switch ev.Type {
	case event.UserCreated, event.UserUpdated:
		if ev.User == nil || ev.User.ID == "" {
			return fmt.Errorf("%w: %s without user", ErrMalformed, ev.Type)
		}
		return w.Index.Upsert(ctx, ev.User)
	case event.UserDeleted:
		if ev.UserID == "" {
			return fmt.Errorf("%w: %s without user_id", ErrMalformed, ev.Type)
		}
		return w.Index.Delete(ctx, ev.UserID)
	case event.UsersDeletedByRange:
		if ev.MinAge > ev.MaxAge {
			return fmt.Errorf("%w: inverted age range", ErrMalformed)
		}
		return w.Index.DeleteByAgeRange(ctx, ev.MinAge, ev.MaxAge)
	case event.UsersDeletedAll:
		return w.Index.DeleteAll(ctx)
	default:
		return fmt.Errorf("%w: unknown type %q", ErrMalformed, ev.Type)
	}
}

// Handle decodes and applies one message body.
func (w *UserEvents) Handle(ctx context.Context, body []byte) error {
	var ev event.UserEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	c, cancel := context.WithTimeout(ctx, applyTimeout)
	defer cancel()
	return w.Apply(c, ev)
}

// Run processes deliveries until ctx is done or the channel closes. Applied messages are
// acked, malformed ones dropped and index failures requeued once.
func (w *UserEvents) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-deliveries:
			if !ok {
				return
			}
			w.process(ctx, msg)
		}
	}
}

func (w *UserEvents) process(ctx context.Context, msg amqp.Delivery) {
	err := w.Handle(ctx, msg.Body)
	fields := logrus.Fields{"type": msg.Type, "delivery_tag": msg.DeliveryTag}
	switch {
	case err == nil:
		_ = msg.Ack(false)
		w.Logger.WithFields(fields).Debug("user event applied")
	case errors.Is(err, ErrMalformed):
		_ = msg.Nack(false, false)
		w.Logger.WithError(err).WithFields(fields).Warn("dropping user event")
	default:
		requeue := !msg.Redelivered
		_ = msg.Nack(false, requeue)
		w.Logger.WithError(err).WithFields(fields).WithField("requeue", requeue).Error("apply user event failed")
	}
}
