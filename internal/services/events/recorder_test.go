package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/realmkeeper/internal/dependencies/mocks"
	"github.com/mcoot/realmkeeper/internal/model"
	"github.com/mcoot/realmkeeper/internal/storage"
	"github.com/mcoot/realmkeeper/internal/storage/memory"
	"github.com/mcoot/realmkeeper/internal/testutil"
)

type captureBroadcaster struct {
	mu     sync.Mutex
	events []model.Event
}

func (b *captureBroadcaster) Broadcast(event model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

type failingStore struct {
	storage.EventStore
}

func (failingStore) AppendEvent(context.Context, *model.Event) error {
	return errors.New("disk on fire")
}

type RecorderSuite struct {
	suite.Suite
	storage     *memory.Storage
	clock       *mocks.MockClock
	broadcaster *captureBroadcaster
	recorder    *Recorder
	ctx         context.Context
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	s.broadcaster = &captureBroadcaster{}
	s.recorder = NewRecorder(s.storage, s.broadcaster, s.clock, mocks.NewMockIDs("evt"), testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *RecorderSuite) TestRecordPersistsAndBroadcasts() {
	event, err := s.recorder.Record(s.ctx, model.Event{
		Description: "A city was founded",
		OwnerID:     "acc-1",
		KingdomID:   "k-1",
		EventType:   model.EventCityCreated,
	})
	s.Require().NoError(err)
	s.Equal(model.EventID("evt-1"), event.ID)
	s.Equal(s.clock.Now(), event.Timestamp)

	stored, err := s.recorder.List(s.ctx, model.EventQuery{OwnerID: "acc-1"})
	s.Require().NoError(err)
	s.Require().Len(stored, 1)
	s.Equal(event.ID, stored[0].ID)

	s.Require().Len(s.broadcaster.events, 1)
	s.Equal(event.ID, s.broadcaster.events[0].ID)
}

func (s *RecorderSuite) TestRecordIgnoresClientIDAndTimestamp() {
	event, err := s.recorder.Record(s.ctx, model.Event{ID: "forged", Timestamp: time.Unix(0, 0)})
	s.Require().NoError(err)
	s.Equal(model.EventID("evt-1"), event.ID)
	s.Equal(s.clock.Now(), event.Timestamp)
}

func (s *RecorderSuite) TestListNewestFirst() {
	for range 3 {
		_, err := s.recorder.Record(s.ctx, model.Event{OwnerID: "acc-1"})
		s.Require().NoError(err)
		s.clock.Advance(time.Minute)
	}

	events, err := s.recorder.List(s.ctx, model.EventQuery{Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(model.EventID("evt-3"), events[0].ID)
	s.Equal(model.EventID("evt-2"), events[1].ID)
}

func (s *RecorderSuite) TestRecordOrWarnSurfacesFailure() {
	logger, logs := testutil.CaptureLogger()
	recorder := NewRecorder(failingStore{}, s.broadcaster, s.clock, mocks.NewMockIDs("evt"), logger)

	warnings := recorder.RecordOrWarn(s.ctx, model.Event{EventType: model.EventAutoGenerated, KingdomID: "k-1"})
	s.Require().Len(warnings, 1)
	s.Contains(warnings[0], "auto_generated")
	s.Empty(s.broadcaster.events)
	s.Contains(logs.String(), `"level":"WARN"`)
	s.Contains(logs.String(), "disk on fire")
}

func (s *RecorderSuite) TestRecordOrWarnSuccess() {
	s.Nil(s.recorder.RecordOrWarn(s.ctx, model.Event{EventType: model.EventKingdomCreated}))
}

func (s *RecorderSuite) TestNilBroadcaster() {
	recorder := NewRecorder(s.storage, nil, s.clock, mocks.NewMockIDs("evt"), testutil.NopLogger())
	_, err := recorder.Record(s.ctx, model.Event{})
	s.NoError(err)
}
