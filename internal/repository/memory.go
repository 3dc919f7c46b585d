package repository

import (
	"context"
	"sync"
	"time"

	"localhire/internal/models"
)

// MemoryRatingStore is the process-local rating store used without Redis and in tests.
type MemoryRatingStore struct {
	mu      sync.Mutex
	ratings map[string]models.Rating
}

func NewMemoryRatingStore() *MemoryRatingStore {
	return &MemoryRatingStore{ratings: make(map[string]models.Rating)}
}

func (s *MemoryRatingStore) GetRating(_ context.Context, contractorID string) (*models.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.ratings[contractorID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *MemoryRatingStore) SetRating(_ context.Context, r *models.Rating) error {
	r.UpdatedAt = time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratings[r.ContractorID] = *r
	return nil
}

func (s *MemoryRatingStore) IncrementRating(_ context.Context, contractorID string, stars int) (*models.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.ratings[contractorID]
	r.ContractorID = contractorID
	r.TotalRating += int64(stars)
	r.TotalReviews++
	r.UpdatedAt = time.Now().UTC()
	s.ratings[contractorID] = r
	return &r, nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// MemoryLimiter mirrors RedisLimiter inside the process.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateLimitEntry
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{entries: make(map[string]*rateLimitEntry), now: time.Now}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		l.entries[key] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}
