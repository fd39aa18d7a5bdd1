// Package identity resolves authenticated email addresses to users.
package identity

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/consentkeeper/internal/server/models"
	"github.com/dmitrijs2005/consentkeeper/internal/server/repositories/users"
	"github.com/patrickmn/go-cache"
)

// Store is a read-through cache over the users repository. Users never change
// after registration within this service, so hits are served without a
// database round trip. Misses are not cached.
type Store struct {
	repo  users.Repository
	cache *cache.Cache
}

// NewStore builds a Store over repo. A non-positive ttl disables caching.
func NewStore(repo users.Repository, ttl time.Duration) *Store {
	s := &Store{repo: repo}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

func cacheKey(email string) string {
	return "user:" + strings.ToLower(email)
}

// ResolveByEmail returns the user registered under email, compared without
// regard to case, or common.ErrorNotFound.
func (s *Store) ResolveByEmail(ctx context.Context, email string) (*models.User, error) {
	key := cacheKey(email)
	if s.cache != nil {
		if x, found := s.cache.Get(key); found {
			u := x.(models.User)
			return &u, nil
		}
	}

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(key, *u, cache.DefaultExpiration)
	}
	return u, nil
}

func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if s.cache != nil {
		if _, found := s.cache.Get(cacheKey(email)); found {
			return true, nil
		}
	}
	return s.repo.ExistsByEmail(ctx, email)
}
