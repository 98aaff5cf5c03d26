package cache

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestNewManager_NilClient(t *testing.T) {
	assert.Panics(t, func() { NewManager(nil) })
}

// ManagerSuite runs against a local Redis on DB 15 and is skipped when none
// is listening. tests/integration covers the same paths in a container.
type ManagerSuite struct {
	suite.Suite
	rdb     *redis.Client
	manager *Manager
	ctx     context.Context
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupSuite() {
	s.ctx = context.Background()
	s.rdb = redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	if err := s.rdb.Ping(s.ctx).Err(); err != nil {
		s.T().Skipf("redis not available: %v", err)
	}
	s.manager = NewManager(s.rdb)
}

func (s *ManagerSuite) TearDownSuite() {
	if s.rdb != nil {
		s.rdb.FlushDB(context.Background())
		s.rdb.Close()
	}
}

func (s *ManagerSuite) SetupTest() {
	s.Require().NoError(s.rdb.FlushDB(s.ctx).Err())
}

func (s *ManagerSuite) key(page string) Key {
	return NewKey("dokumentlista", url.Values{"sok": {"klimat"}, "p": {page}})
}

func freshPage(ttl time.Duration) *Page {
	now := time.Now()
	return &Page{
		Body:     []byte(`{"dokumentlista": {"@sidor": "1"}}`),
		Status:   200,
		StoredAt: now,
		Expires:  now.Add(ttl),
	}
}

func (s *ManagerSuite) TestSetAndGet() {
	want := freshPage(time.Minute)
	s.Require().NoError(s.manager.Set(s.ctx, s.key("1"), want))

	got, err := s.manager.Get(s.ctx, s.key("1"))
	s.Require().NoError(err)
	s.Equal(want.Body, got.Body)
	s.Equal(want.Status, got.Status)
	s.Equal(want.Expires.UnixMilli(), got.Expires.UnixMilli())
	s.Equal(want.StoredAt.UnixMilli(), got.StoredAt.UnixMilli())
}

func (s *ManagerSuite) TestRedisExpiry() {
	s.Require().NoError(s.manager.Set(s.ctx, s.key("1"), freshPage(time.Minute)))

	ttl, err := s.rdb.PTTL(s.ctx, s.key("1").String()).Result()
	s.Require().NoError(err)
	s.Greater(ttl, 50*time.Second)
	s.LessOrEqual(ttl, time.Minute)
}

func (s *ManagerSuite) TestGetMiss() {
	_, err := s.manager.Get(s.ctx, s.key("9"))
	s.ErrorIs(err, ErrCacheMiss)
}

func (s *ManagerSuite) TestSetSkipsStalePage() {
	s.Require().NoError(s.manager.Set(s.ctx, s.key("1"), freshPage(-time.Second)))

	n, err := s.rdb.Exists(s.ctx, s.key("1").String()).Result()
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *ManagerSuite) TestSetNilPage() {
	s.Error(s.manager.Set(s.ctx, s.key("1"), nil))
}

func (s *ManagerSuite) TestGetStaleHashIsMiss() {
	// expires field in the past while Redis still holds the key
	past := time.Now().Add(-time.Second).UnixMilli()
	s.Require().NoError(s.rdb.HSet(s.ctx, s.key("1").String(),
		fieldBody, "{}", fieldStatus, 200, fieldStoredAt, past, fieldExpires, past).Err())

	_, err := s.manager.Get(s.ctx, s.key("1"))
	s.ErrorIs(err, ErrCacheMiss)
}

func (s *ManagerSuite) TestGetInvalidEntry() {
	s.Require().NoError(s.rdb.HSet(s.ctx, s.key("1").String(), fieldBody, "{}", fieldStatus, "ok").Err())

	_, err := s.manager.Get(s.ctx, s.key("1"))
	s.ErrorIs(err, ErrInvalidEntry)
}

func (s *ManagerSuite) TestDelete() {
	s.Require().NoError(s.manager.Set(s.ctx, s.key("1"), freshPage(time.Minute)))
	s.Require().NoError(s.manager.Set(s.ctx, s.key("2"), freshPage(time.Minute)))

	s.Require().NoError(s.manager.Delete(s.ctx, s.key("1")))

	_, err := s.manager.Get(s.ctx, s.key("1"))
	s.ErrorIs(err, ErrCacheMiss)
	_, err = s.manager.Get(s.ctx, s.key("2"))
	s.NoError(err)
}

func (s *ManagerSuite) TestPing() {
	s.NoError(s.manager.Ping(s.ctx))
}

func TestManager_PingUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := NewManager(rdb).Ping(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")
}
