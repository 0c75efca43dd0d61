package redis

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/realmkeeper/internal/model"
	"github.com/mcoot/realmkeeper/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	mini    *miniredis.Miniredis
	client  *redis.Client
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	s.client = redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.storage = NewWithClient(s.client, DefaultConfig())
	s.Store = s.storage
	s.Ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) TestKeyLayout() {
	s.Require().NoError(s.storage.CreateAccount(s.Ctx, &model.Account{ID: "acc-1", Username: "alice", Email: "Alice@X.io"}))
	s.Require().NoError(s.storage.CreateKingdom(s.Ctx, &model.Kingdom{
		ID:      "k-1",
		OwnerID: "acc-1",
		Cities:  []model.City{{ID: "c-1", KingdomID: "k-1"}},
	}))

	s.True(s.mini.Exists("realm:auth:account:acc-1"))
	s.True(s.mini.Exists("realm:auth:idx:username:alice"))
	s.True(s.mini.Exists("realm:auth:idx:email:alice@x.io"))
	s.True(s.mini.Exists("realm:kingdom:k-1"))

	members, err := s.mini.SMembers("realm:idx:owner:acc-1:kingdoms")
	s.Require().NoError(err)
	s.Equal([]string{"k-1"}, members)
	s.Equal("k-1", s.mini.HGet("realm:idx:cities", "c-1"))
}

func (s *StorageSuite) TestBackfillPreservesUnknownFields() {
	legacy := `{"id":"k-old","name":"Old Realm","cities":[],"banner_colour":"crimson","total_population":0}`
	s.Require().NoError(s.client.Set(s.Ctx, "realm:kingdom:k-old", legacy, 0).Err())
	s.Require().NoError(s.client.SAdd(s.Ctx, "realm:idx:kingdoms", "k-old").Err())

	n, err := s.storage.BackfillOwner(s.Ctx, model.CollectionKingdoms, "admin-1")
	s.Require().NoError(err)
	s.Equal(1, n)

	raw, err := s.mini.Get("realm:kingdom:k-old")
	s.Require().NoError(err)
	var doc map[string]any
	s.Require().NoError(json.Unmarshal([]byte(raw), &doc))
	s.Equal("crimson", doc["banner_colour"])
	s.Equal("admin-1", doc["owner_id"])

	n, err = s.storage.BackfillOwner(s.Ctx, model.CollectionKingdoms, "admin-1")
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *StorageSuite) TestStoreUnavailable() {
	s.mini.Close()

	_, err := s.storage.GetKingdom(s.Ctx, "k-1")
	s.ErrorIs(err, model.ErrStoreUnavailable)

	_, err = s.storage.UpdateKingdom(s.Ctx, "k-1", func(*model.Kingdom) error { return nil })
	s.ErrorIs(err, model.ErrStoreUnavailable)
}

func (s *StorageSuite) TestNewRejectsBadURL() {
	_, err := New(Config{URL: "not a url"})
	s.Error(err)
}
