package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/mcoot/realmkeeper/internal/model"
	"github.com/mcoot/realmkeeper/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Values are copied in and out so callers never share memory with the store.
type Storage struct {
	mu sync.RWMutex

	accounts      map[model.AccountID]*model.Account
	usernameIndex map[string]model.AccountID
	emailIndex    map[string]model.AccountID

	kingdoms  map[model.KingdomID]*model.Kingdom
	cityIndex map[model.CityID]model.KingdomID

	events []*model.Event

	calendarEvents map[string]*model.CalendarEvent
	boundaries     map[string]*model.Boundary
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		accounts:       make(map[model.AccountID]*model.Account),
		usernameIndex:  make(map[string]model.AccountID),
		emailIndex:     make(map[string]model.AccountID),
		kingdoms:       make(map[model.KingdomID]*model.Kingdom),
		cityIndex:      make(map[model.CityID]model.KingdomID),
		calendarEvents: make(map[string]*model.CalendarEvent),
		boundaries:     make(map[string]*model.Boundary),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.usernameIndex[account.Username]; ok {
		return model.ErrUsernameTaken
	}
	email := strings.ToLower(account.Email)
	if _, ok := s.emailIndex[email]; ok {
		return model.ErrEmailTaken
	}
	stored := *account
	s.accounts[account.ID] = &stored
	s.usernameIndex[account.Username] = account.ID
	s.emailIndex[email] = account.ID
	return nil
}

func (s *Storage) UpdateAccount(ctx context.Context, id model.AccountID, fn storage.AccountMutateFunc) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}

	next := *current
	if err := fn(&next); err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.Username = current.Username
	next.Email = current.Email

	s.accounts[id] = &next
	out := next
	return &out, nil
}

func (s *Storage) GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountLocked(id)
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return s.accountLocked(id)
}

func (s *Storage) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emailIndex[strings.ToLower(email)]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return s.accountLocked(id)
}

func (s *Storage) accountLocked(id model.AccountID) (*model.Account, error) {
	account, ok := s.accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	out := *account
	return &out, nil
}

// Kingdom operations

func (s *Storage) CreateKingdom(ctx context.Context, kingdom *model.Kingdom) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := kingdom.Clone()
	stored.RecomputePopulation()
	s.kingdoms[kingdom.ID] = stored
	for _, id := range stored.CityIDs() {
		s.cityIndex[id] = stored.ID
	}
	return nil
}

func (s *Storage) GetKingdom(ctx context.Context, id model.KingdomID) (*model.Kingdom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kingdom, ok := s.kingdoms[id]
	if !ok {
		return nil, model.ErrKingdomNotFound
	}
	return kingdom.Clone(), nil
}

func (s *Storage) ListKingdoms(ctx context.Context) ([]*model.Kingdom, error) {
	return s.listKingdoms(func(*model.Kingdom) bool { return true }), nil
}

func (s *Storage) ListKingdomsByOwner(ctx context.Context, owner model.AccountID) ([]*model.Kingdom, error) {
	return s.listKingdoms(func(k *model.Kingdom) bool { return k.OwnedBy(owner) }), nil
}

func (s *Storage) listKingdoms(keep func(*model.Kingdom) bool) []*model.Kingdom {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Kingdom, 0, len(s.kingdoms))
	for _, k := range s.kingdoms {
		if keep(k) {
			out = append(out, k.Clone())
		}
	}
	storage.SortKingdoms(out)
	return out
}

// UpdateKingdom mutates a clone under the write lock and swaps it in,
// so a failing fn leaves the stored kingdom untouched
func (s *Storage) UpdateKingdom(ctx context.Context, id model.KingdomID, fn storage.MutateFunc) (*model.Kingdom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.kingdoms[id]
	if !ok {
		return nil, model.ErrKingdomNotFound
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.OwnerID = current.OwnerID
	next.RecomputePopulation()

	for _, cityID := range current.CityIDs() {
		delete(s.cityIndex, cityID)
	}
	for _, cityID := range next.CityIDs() {
		s.cityIndex[cityID] = id
	}
	s.kingdoms[id] = next
	return next.Clone(), nil
}

func (s *Storage) DeleteKingdom(ctx context.Context, id model.KingdomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kingdom, ok := s.kingdoms[id]
	if !ok {
		return model.ErrKingdomNotFound
	}
	for _, cityID := range kingdom.CityIDs() {
		delete(s.cityIndex, cityID)
	}
	delete(s.kingdoms, id)
	return nil
}

func (s *Storage) KingdomIDForCity(ctx context.Context, cityID model.CityID) (model.KingdomID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.cityIndex[cityID]
	if !ok {
		return "", model.ErrCityNotFound
	}
	return id, nil
}

// Event operations

func (s *Storage) AppendEvent(ctx context.Context, event *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *event
	s.events = append(s.events, &stored)
	return nil
}

func (s *Storage) ListEvents(ctx context.Context, query model.EventQuery) ([]*model.Event, error) {
	limit, offset := storage.NormalizeWindow(query.Limit, query.Offset)

	s.mu.RLock()
	matched := make([]*model.Event, 0)
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if query.OwnerID != "" && e.OwnerID != query.OwnerID {
			continue
		}
		if query.KingdomID != "" && e.KingdomID != query.KingdomID {
			continue
		}
		out := *e
		matched = append(matched, &out)
	}
	s.mu.RUnlock()

	// newest insertion first breaks timestamp ties
	slices.SortStableFunc(matched, func(a, b *model.Event) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if offset >= len(matched) {
		return []*model.Event{}, nil
	}
	return matched[offset:min(offset+limit, len(matched))], nil
}

// Document operations

func (s *Storage) SaveCalendarEvent(ctx context.Context, event *model.CalendarEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *event
	s.calendarEvents[event.ID] = &stored
	return nil
}

func (s *Storage) SaveBoundary(ctx context.Context, boundary *model.Boundary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *boundary
	s.boundaries[boundary.ID] = &stored
	return nil
}

func (s *Storage) BackfillOwner(ctx context.Context, collection model.Collection, owner model.AccountID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	switch collection {
	case model.CollectionKingdoms:
		count = backfill(s.kingdoms, func(k *model.Kingdom) *model.AccountID { return &k.OwnerID }, owner)
	case model.CollectionEvents:
		for _, e := range s.events {
			if e.OwnerID == "" {
				e.OwnerID = owner
				count++
			}
		}
	case model.CollectionCalendarEvents:
		count = backfill(s.calendarEvents, func(e *model.CalendarEvent) *model.AccountID { return &e.OwnerID }, owner)
	case model.CollectionBoundaries:
		count = backfill(s.boundaries, func(b *model.Boundary) *model.AccountID { return &b.OwnerID }, owner)
	default:
		return 0, model.NewValidationError("collection", "unknown collection "+string(collection))
	}
	return count, nil
}

func backfill[K cmp.Ordered, V any](docs map[K]*V, ownerOf func(*V) *model.AccountID, owner model.AccountID) int {
	count := 0
	for _, doc := range docs {
		if field := ownerOf(doc); *field == "" {
			*field = owner
			count++
		}
	}
	return count
}
