package redis

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

type extractionSummary struct {
	DocumentID string `json:"document_id"`
	Comments   int    `json:"comments"`
}

// CacheTestSuite runs against miniredis.
type CacheTestSuite struct {
	suite.Suite
	client *Client
	cache  Cache
}

func (s *CacheTestSuite) SetupTest() {
	_, s.client = newMiniClient(s.T())
	s.cache = NewRedisCache(s.client, logging.NewNopLogger(), WithDefaultTTL(time.Minute))
}

func (s *CacheTestSuite) TestSetThenGet() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, "doc-1", extractionSummary{DocumentID: "doc-1", Comments: 4}, 0))

	var got extractionSummary
	s.Require().NoError(s.cache.Get(ctx, "doc-1", &got))
	s.Equal(4, got.Comments)
}

func (s *CacheTestSuite) TestGet_Miss() {
	var got extractionSummary
	err := s.cache.Get(context.Background(), "absent", &got)
	s.ErrorIs(err, ErrCacheMiss)
}

func (s *CacheTestSuite) TestDelete() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, "doc-1", extractionSummary{}, 0))
	s.Require().NoError(s.cache.Delete(ctx, "doc-1"))
	s.Require().NoError(s.cache.Delete(ctx))

	var got extractionSummary
	s.ErrorIs(s.cache.Get(ctx, "doc-1", &got), ErrCacheMiss)
}

func (s *CacheTestSuite) TestGetOrSet_LoadsOnce() {
	ctx := context.Background()
	var loads int32
	loader := func(context.Context) (any, error) {
		atomic.AddInt32(&loads, 1)
		time.Sleep(10 * time.Millisecond)
		return extractionSummary{DocumentID: "doc-1", Comments: 7}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var got extractionSummary
			if s.NoError(s.cache.GetOrSet(ctx, "doc-1", &got, 0, loader)) {
				s.Equal(7, got.Comments)
			}
		}()
	}
	wg.Wait()
	loaded := atomic.LoadInt32(&loads)
	s.GreaterOrEqual(loaded, int32(1))

	var got extractionSummary
	s.Require().NoError(s.cache.GetOrSet(ctx, "doc-1", &got, 0, loader))
	s.Equal(loaded, atomic.LoadInt32(&loads), "a cached value is not reloaded")
}

func (s *CacheTestSuite) TestGetOrSet_LoaderError() {
	boom := stderrors.New("extract failed")
	var got extractionSummary
	err := s.cache.GetOrSet(context.Background(), "doc-2", &got, 0, func(context.Context) (any, error) {
		return nil, boom
	})
	s.ErrorIs(err, boom)
	s.ErrorIs(s.cache.Get(context.Background(), "doc-2", &got), ErrCacheMiss)
}

func (s *CacheTestSuite) TestClaim() {
	ctx := context.Background()
	first, err := s.cache.Claim(ctx, "msg-1", time.Minute)
	s.Require().NoError(err)
	s.True(first)

	again, err := s.cache.Claim(ctx, "msg-1", time.Minute)
	s.Require().NoError(err)
	s.False(again)
}

func (s *CacheTestSuite) TestClosedClient() {
	s.Require().NoError(s.client.Close())
	var got extractionSummary
	s.ErrorIs(s.cache.Get(context.Background(), "doc-1", &got), ErrClientClosed)
	_, err := s.cache.Claim(context.Background(), "msg-1", 0)
	s.ErrorIs(err, ErrClientClosed)
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func TestCache_BackendErrors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := NewClientFromUniversal(db, "test", logging.NewNopLogger())
	cache := NewRedisCache(client, logging.NewNopLogger())
	ctx := context.Background()

	mock.ExpectGet("test:cache:doc-1").SetErr(stderrors.New("READONLY"))
	var got extractionSummary
	err := cache.Get(ctx, "doc-1", &got)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCacheError))

	mock.ExpectGet("test:cache:doc-2").SetVal("{not json")
	err = cache.Get(ctx, "doc-2", &got)
	assert.ErrorIs(t, err, ErrSerializationFailed)

	mock.ExpectDel("test:cache:a", "test:cache:b").SetErr(stderrors.New("down"))
	assert.True(t, errors.IsCode(cache.Delete(ctx, "a", "b"), errors.ErrCodeCacheError))

	assert.NoError(t, mock.ExpectationsWereMet())
}

//Personal.AI order the ending
