package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcoot/realmkeeper/internal/dependencies/clock"
	"github.com/mcoot/realmkeeper/internal/dependencies/ids"
	"github.com/mcoot/realmkeeper/internal/model"
	"github.com/mcoot/realmkeeper/internal/storage"
)

// Broadcaster delivers a persisted event to live subscribers.
// Implementations must not block.
type Broadcaster interface {
	Broadcast(event model.Event)
}

// Recorder appends narrative events to the log and pushes them to subscribers
type Recorder struct {
	store       storage.EventStore
	broadcaster Broadcaster
	clock       clock.Clock
	ids         ids.Generator
	logger      *slog.Logger
}

// NewRecorder creates a Recorder. broadcaster may be nil.
func NewRecorder(store storage.EventStore, broadcaster Broadcaster, clock clock.Clock, ids ids.Generator, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:       store,
		broadcaster: broadcaster,
		clock:       clock,
		ids:         ids,
		logger:      logger,
	}
}

// Record assigns an id and timestamp, persists the event, then broadcasts it
func (r *Recorder) Record(ctx context.Context, draft model.Event) (*model.Event, error) {
	event := draft
	event.ID = model.EventID(r.ids.New())
	event.Timestamp = r.clock.Now()

	if err := r.store.AppendEvent(ctx, &event); err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}
	if r.broadcaster != nil {
		r.broadcaster.Broadcast(event)
	}
	return &event, nil
}

// RecordOrWarn records an event after a mutation has already been committed.
// A failure is logged and returned as a warning; the mutation stands.
func (r *Recorder) RecordOrWarn(ctx context.Context, draft model.Event) (warnings []string) {
	if _, err := r.Record(ctx, draft); err != nil {
		r.logger.Warn("failed to record event",
			slog.String("event_type", string(draft.EventType)),
			slog.String("kingdom_id", string(draft.KingdomID)),
			slog.Any("error", err))
		return []string{"event log unavailable: " + string(draft.EventType) + " not recorded"}
	}
	return nil
}

// List returns events newest first
func (r *Recorder) List(ctx context.Context, query model.EventQuery) ([]*model.Event, error) {
	return r.store.ListEvents(ctx, query)
}
