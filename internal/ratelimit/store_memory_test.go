package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

const (
	testLimit  = 3
	testWindow = time.Minute
)

type InMemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	now   time.Time
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.store = NewInMemoryStore()
	s.store.now = func() time.Time { return s.now }
}

func (s *InMemoryStoreSuite) TestAllowN() {
	s.Run("requests up to the limit are allowed", func() {
		var res Result
		for i := range testLimit {
			var err error
			res, err = s.store.AllowN(s.ctx, "k:limit", 1, testLimit, testWindow)
			s.Require().NoError(err)
			s.True(res.Allowed)
			s.Equal(testLimit-i-1, res.Remaining)
		}
		s.Equal(s.now.Add(testWindow), res.ResetAt)
	})

	s.Run("request over the limit is denied with retry hint", func() {
		for range testLimit {
			_, err := s.store.AllowN(s.ctx, "k:over", 1, testLimit, testWindow)
			s.Require().NoError(err)
		}
		res, err := s.store.AllowN(s.ctx, "k:over", 1, testLimit, testWindow)
		s.Require().NoError(err)
		s.False(res.Allowed)
		s.Equal(0, res.Remaining)
		s.Equal(60, res.RetryAfter)
	})

	s.Run("cost larger than the remainder is denied", func() {
		_, err := s.store.AllowN(s.ctx, "k:cost", 2, testLimit, testWindow)
		s.Require().NoError(err)
		res, err := s.store.AllowN(s.ctx, "k:cost", 2, testLimit, testWindow)
		s.Require().NoError(err)
		s.False(res.Allowed)
	})

	s.Run("keys are independent", func() {
		for range testLimit {
			_, err := s.store.AllowN(s.ctx, "k:a", 1, testLimit, testWindow)
			s.Require().NoError(err)
		}
		res, err := s.store.AllowN(s.ctx, "k:b", 1, testLimit, testWindow)
		s.Require().NoError(err)
		s.True(res.Allowed)
	})
}

func (s *InMemoryStoreSuite) TestWindowSlides() {
	for range testLimit {
		_, err := s.store.AllowN(s.ctx, "k:slide", 1, testLimit, testWindow)
		s.Require().NoError(err)
	}
	s.now = s.now.Add(testWindow + time.Second)

	res, err := s.store.AllowN(s.ctx, "k:slide", 1, testLimit, testWindow)
	s.Require().NoError(err)
	s.True(res.Allowed)
	s.Equal(testLimit-1, res.Remaining)
}

func (s *InMemoryStoreSuite) TestReset() {
	for range testLimit {
		_, err := s.store.AllowN(s.ctx, "k:reset", 1, testLimit, testWindow)
		s.Require().NoError(err)
	}
	s.Require().NoError(s.store.Reset(s.ctx, "k:reset"))
	res, err := s.store.AllowN(s.ctx, "k:reset", 1, testLimit, testWindow)
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *InMemoryStoreSuite) TestConcurrentCallersNeverExceedLimit() {
	const workers = 50
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.store.AllowN(s.ctx, "k:race", 1, testLimit, testWindow)
			if err == nil && res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(testLimit, allowed)
}
