package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/realmkeeper/internal/model"
	"github.com/mcoot/realmkeeper/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Each kingdom is one JSON document; updates use WATCH/MULTI/EXEC so
// concurrent writers never lose each other's changes.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, unavailable(err)
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.UpdateRetries <= 0 {
		cfg.UpdateRetries = DefaultConfig().UpdateRetries
	}
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ping checks connectivity
func (s *Storage) Ping(ctx context.Context) error {
	return unavailable(s.client.Ping(ctx).Err())
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// aborted carries an error raised by our own logic inside a transaction,
// as opposed to a Redis failure
type aborted struct{ err error }

func (a aborted) Error() string { return a.err.Error() }
func (a aborted) Unwrap() error { return a.err }

func unavailable(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
}

// watch runs fn in an optimistic transaction over keys, retrying when a
// watched key changes underneath it
func (s *Storage) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for range s.cfg.UpdateRetries {
		err := s.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		var ab aborted
		if errors.As(err, &ab) {
			return ab.err
		}
		return unavailable(err)
	}
	return model.ErrConflict
}

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, account *model.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return err
	}
	uKey, eKey := usernameIndexKey(account.Username), emailIndexKey(account.Email)

	return s.watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, uKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return aborted{model.ErrUsernameTaken}
		}
		n, err = tx.Exists(ctx, eKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return aborted{model.ErrEmailTaken}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, accountKey(account.ID), data, 0)
			pipe.Set(ctx, uKey, string(account.ID), 0)
			pipe.Set(ctx, eKey, string(account.ID), 0)
			return nil
		})
		return err
	}, uKey, eKey)
}

func (s *Storage) UpdateAccount(ctx context.Context, id model.AccountID, fn storage.AccountMutateFunc) (*model.Account, error) {
	key := accountKey(id)
	var result *model.Account

	err := s.watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return aborted{model.ErrAccountNotFound}
		}
		if err != nil {
			return err
		}
		var current model.Account
		if err := json.Unmarshal(data, &current); err != nil {
			return aborted{err}
		}

		next := current
		if err := fn(&next); err != nil {
			return aborted{err}
		}
		next.ID = current.ID
		next.Username = current.Username
		next.Email = current.Email

		out, err := json.Marshal(&next)
		if err != nil {
			return aborted{err}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err != nil {
			return err
		}
		result = &next
		return nil
	}, key)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Storage) GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error) {
	data, err := s.client.Get(ctx, accountKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, unavailable(err)
	}

	var account model.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	return s.accountByIndex(ctx, usernameIndexKey(username))
}

func (s *Storage) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return s.accountByIndex(ctx, emailIndexKey(email))
}

func (s *Storage) accountByIndex(ctx context.Context, indexKey string) (*model.Account, error) {
	id, err := s.client.Get(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, unavailable(err)
	}
	return s.GetAccount(ctx, model.AccountID(id))
}

// Kingdom operations

func (s *Storage) CreateKingdom(ctx context.Context, kingdom *model.Kingdom) error {
	stored := kingdom.Clone()
	stored.RecomputePopulation()
	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, kingdomKey(stored.ID), data, 0)
		pipe.SAdd(ctx, kingdomsIndexKey(), string(stored.ID))
		if stored.OwnerID != "" {
			pipe.SAdd(ctx, ownerKingdomsIndexKey(stored.OwnerID), string(stored.ID))
		}
		syncCityIndex(ctx, pipe, nil, stored)
		return nil
	})
	return unavailable(err)
}

func (s *Storage) GetKingdom(ctx context.Context, id model.KingdomID) (*model.Kingdom, error) {
	data, err := s.client.Get(ctx, kingdomKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrKingdomNotFound
		}
		return nil, unavailable(err)
	}
	return decodeKingdom(data)
}

func (s *Storage) ListKingdoms(ctx context.Context) ([]*model.Kingdom, error) {
	return s.kingdomsInSet(ctx, kingdomsIndexKey())
}

func (s *Storage) ListKingdomsByOwner(ctx context.Context, owner model.AccountID) ([]*model.Kingdom, error) {
	return s.kingdomsInSet(ctx, ownerKingdomsIndexKey(owner))
}

func (s *Storage) kingdomsInSet(ctx context.Context, setKey string) ([]*model.Kingdom, error) {
	ids, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(ids) == 0 {
		return []*model.Kingdom{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = kingdomKey(model.KingdomID(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	kingdoms := make([]*model.Kingdom, 0, len(values))
	for _, v := range values {
		// Index entries can briefly outlive a deleted kingdom
		raw, ok := v.(string)
		if !ok {
			continue
		}
		k, err := decodeKingdom([]byte(raw))
		if err != nil {
			return nil, err
		}
		kingdoms = append(kingdoms, k)
	}
	storage.SortKingdoms(kingdoms)
	return kingdoms, nil
}

func (s *Storage) UpdateKingdom(ctx context.Context, id model.KingdomID, fn storage.MutateFunc) (*model.Kingdom, error) {
	key := kingdomKey(id)
	var result *model.Kingdom

	err := s.watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return aborted{model.ErrKingdomNotFound}
		}
		if err != nil {
			return err
		}
		current, err := decodeKingdom(data)
		if err != nil {
			return aborted{err}
		}

		next := current.Clone()
		if err := fn(next); err != nil {
			return aborted{err}
		}
		next.ID = current.ID
		next.OwnerID = current.OwnerID
		next.RecomputePopulation()

		out, err := json.Marshal(next)
		if err != nil {
			return aborted{err}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			syncCityIndex(ctx, pipe, current, next)
			return nil
		})
		if err != nil {
			return err
		}
		result = next
		return nil
	}, key)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Storage) DeleteKingdom(ctx context.Context, id model.KingdomID) error {
	key := kingdomKey(id)
	return s.watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return aborted{model.ErrKingdomNotFound}
		}
		if err != nil {
			return err
		}
		current, err := decodeKingdom(data)
		if err != nil {
			return aborted{err}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, kingdomsIndexKey(), string(id))
			if current.OwnerID != "" {
				pipe.SRem(ctx, ownerKingdomsIndexKey(current.OwnerID), string(id))
			}
			syncCityIndex(ctx, pipe, current, nil)
			return nil
		})
		return err
	}, key)
}

func (s *Storage) KingdomIDForCity(ctx context.Context, cityID model.CityID) (model.KingdomID, error) {
	id, err := s.client.HGet(ctx, cityIndexKey(), string(cityID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", model.ErrCityNotFound
		}
		return "", unavailable(err)
	}
	return model.KingdomID(id), nil
}

// syncCityIndex queues the city index changes between two versions of a
// kingdom; either side may be nil
func syncCityIndex(ctx context.Context, pipe redis.Pipeliner, before, after *model.Kingdom) {
	keep := make(map[model.CityID]bool)
	if after != nil {
		fields := make([]any, 0, 2*len(after.Cities))
		for _, id := range after.CityIDs() {
			keep[id] = true
			fields = append(fields, string(id), string(after.ID))
		}
		if len(fields) > 0 {
			pipe.HSet(ctx, cityIndexKey(), fields...)
		}
	}
	if before != nil {
		var stale []string
		for _, id := range before.CityIDs() {
			if !keep[id] {
				stale = append(stale, string(id))
			}
		}
		if len(stale) > 0 {
			pipe.HDel(ctx, cityIndexKey(), stale...)
		}
	}
}

func decodeKingdom(data []byte) (*model.Kingdom, error) {
	var k model.Kingdom
	if err := json.Unmarshal(data, &k); err != nil {
		return nil, err
	}
	return &k, nil
}

// Event operations

func eventScore(e *model.Event) float64 {
	// microseconds stay exact within float64 precision
	return float64(e.Timestamp.UnixMicro())
}

func (s *Storage) AppendEvent(ctx context.Context, event *model.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	member := redis.Z{Score: eventScore(event), Member: string(event.ID)}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, eventKey(event.ID), data, 0)
		pipe.ZAdd(ctx, eventsIndexKey(), member)
		if event.OwnerID != "" {
			pipe.ZAdd(ctx, ownerEventsIndexKey(event.OwnerID), member)
		}
		if event.KingdomID != "" {
			pipe.ZAdd(ctx, kingdomEventsIndexKey(event.KingdomID), member)
		}
		return nil
	})
	return unavailable(err)
}

// eventScanBatch is how many index entries are fetched per round trip when
// results need filtering
const eventScanBatch = 200

func (s *Storage) ListEvents(ctx context.Context, query model.EventQuery) ([]*model.Event, error) {
	limit, offset := storage.NormalizeWindow(query.Limit, query.Offset)

	index := eventsIndexKey()
	filterOwner := false
	switch {
	case query.KingdomID != "":
		index = kingdomEventsIndexKey(query.KingdomID)
		filterOwner = query.OwnerID != ""
	case query.OwnerID != "":
		index = ownerEventsIndexKey(query.OwnerID)
	}

	if !filterOwner {
		ids, err := s.client.ZRevRange(ctx, index, int64(offset), int64(offset+limit-1)).Result()
		if err != nil {
			return nil, unavailable(err)
		}
		return s.loadEvents(ctx, ids)
	}

	out := make([]*model.Event, 0, limit)
	skipped := 0
	for start := int64(0); len(out) < limit; start += eventScanBatch {
		ids, err := s.client.ZRevRange(ctx, index, start, start+eventScanBatch-1).Result()
		if err != nil {
			return nil, unavailable(err)
		}
		if len(ids) == 0 {
			break
		}
		events, err := s.loadEvents(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, e := range events {
			if e.OwnerID != query.OwnerID {
				continue
			}
			if skipped < offset {
				skipped++
				continue
			}
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *Storage) loadEvents(ctx context.Context, ids []string) ([]*model.Event, error) {
	if len(ids) == 0 {
		return []*model.Event{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = eventKey(model.EventID(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	events := make([]*model.Event, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var e model.Event
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, nil
}

// Document operations

func (s *Storage) SaveCalendarEvent(ctx context.Context, event *model.CalendarEvent) error {
	return s.saveDocument(ctx, model.CollectionCalendarEvents, calendarEventKey(event.ID), event.ID, event)
}

func (s *Storage) SaveBoundary(ctx context.Context, boundary *model.Boundary) error {
	return s.saveDocument(ctx, model.CollectionBoundaries, boundaryKey(boundary.ID), boundary.ID, boundary)
}

func (s *Storage) saveDocument(ctx context.Context, c model.Collection, key, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, 0)
		pipe.SAdd(ctx, collectionIndexKey(c), id)
		return nil
	})
	return unavailable(err)
}

// BackfillOwner works on the raw JSON of each document so fields unknown to
// the current model survive the rewrite
func (s *Storage) BackfillOwner(ctx context.Context, collection model.Collection, owner model.AccountID) (int, error) {
	var (
		ids   []string
		keyOf func(id string) string
		err   error
	)
	switch collection {
	case model.CollectionKingdoms:
		ids, err = s.client.SMembers(ctx, kingdomsIndexKey()).Result()
		keyOf = func(id string) string { return kingdomKey(model.KingdomID(id)) }
	case model.CollectionEvents:
		ids, err = s.client.ZRange(ctx, eventsIndexKey(), 0, -1).Result()
		keyOf = func(id string) string { return eventKey(model.EventID(id)) }
	case model.CollectionCalendarEvents:
		ids, err = s.client.SMembers(ctx, collectionIndexKey(collection)).Result()
		keyOf = calendarEventKey
	case model.CollectionBoundaries:
		ids, err = s.client.SMembers(ctx, collectionIndexKey(collection)).Result()
		keyOf = boundaryKey
	default:
		return 0, model.NewValidationError("collection", "unknown collection "+string(collection))
	}
	if err != nil {
		return 0, unavailable(err)
	}

	count := 0
	for _, id := range ids {
		changed, err := s.backfillDocument(ctx, collection, id, keyOf(id), owner)
		if err != nil {
			return count, err
		}
		if changed {
			count++
		}
	}
	return count, nil
}

func (s *Storage) backfillDocument(ctx context.Context, c model.Collection, id, key string, owner model.AccountID) (bool, error) {
	var changed bool
	err := s.watch(ctx, func(tx *redis.Tx) error {
		changed = false
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		var doc map[string]json.RawMessage
		if err := json.Unmarshal(data, &doc); err != nil {
			return aborted{fmt.Errorf("decode %s: %w", key, err)}
		}
		if hasOwner(doc) {
			return nil
		}
		doc["owner_id"], _ = json.Marshal(owner)
		out, err := json.Marshal(doc)
		if err != nil {
			return aborted{err}
		}

		var score float64
		if c == model.CollectionEvents {
			score, err = tx.ZScore(ctx, eventsIndexKey(), id).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			switch c {
			case model.CollectionKingdoms:
				pipe.SAdd(ctx, ownerKingdomsIndexKey(owner), id)
			case model.CollectionEvents:
				pipe.ZAdd(ctx, ownerEventsIndexKey(owner), redis.Z{Score: score, Member: id})
			}
			return nil
		})
		if err != nil {
			return err
		}
		changed = true
		return nil
	}, key)
	return changed, err
}

func hasOwner(doc map[string]json.RawMessage) bool {
	raw, ok := doc["owner_id"]
	if !ok {
		return false
	}
	var owner string
	if err := json.Unmarshal(raw, &owner); err != nil {
		return false
	}
	return owner != ""
}
