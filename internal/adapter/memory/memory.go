// Package memory implements in-memory repositories for development and testing.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"travelstory/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu      sync.Mutex
	users   []*domain.User
	stories []domain.Story
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{}
}

// Ensure interfaces are met.
var _ domain.UserRepository = (*DB)(nil)
var _ domain.StoryRepository = (*DB)(nil)

// --- UserRepository ---

// CreateUser stores a new user, rejecting duplicate emails.
func (db *DB) CreateUser(ctx context.Context, u *domain.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, existing := range db.users {
		if existing.Email == u.Email {
			return domain.ErrEmailTaken
		}
	}
	cp := *u
	db.users = append(db.users, &cp)
	return nil
}

// GetUserByEmail retrieves a user by email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// --- StoryRepository ---

// CreateStory appends a story.
func (db *DB) CreateStory(ctx context.Context, s *domain.Story) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.stories = append(db.stories, *s)
	return nil
}

// GetStory returns the story matching both id and owner.
func (db *DB) GetStory(ctx context.Context, userID, id string) (*domain.Story, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if i := db.indexOf(userID, id); i >= 0 {
		s := db.stories[i]
		return &s, nil
	}
	return nil, nil
}

// ListStories returns the owner's stories, favourites first.
func (db *DB) ListStories(ctx context.Context, userID string) ([]domain.Story, error) {
	return db.collect(userID, func(domain.Story) bool { return true }), nil
}

// SearchStories returns the owner's stories containing query in the title,
// body or location, ignoring case.
func (db *DB) SearchStories(ctx context.Context, userID, query string) ([]domain.Story, error) {
	q := strings.ToLower(query)
	return db.collect(userID, func(s domain.Story) bool {
		return strings.Contains(strings.ToLower(s.Title), q) ||
			strings.Contains(strings.ToLower(s.Story), q) ||
			strings.Contains(strings.ToLower(s.VisitedLocation), q)
	}), nil
}

// ListStoriesVisitedBetween returns the owner's stories with from <= visited < to.
func (db *DB) ListStoriesVisitedBetween(ctx context.Context, userID string, from, to time.Time) ([]domain.Story, error) {
	return db.collect(userID, func(s domain.Story) bool {
		return !s.VisitedDate.Before(from) && s.VisitedDate.Before(to)
	}), nil
}

// UpdateStory overwrites the editable fields of the story matching s.ID and s.UserID.
func (db *DB) UpdateStory(ctx context.Context, s *domain.Story) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	i := db.indexOf(s.UserID, s.ID)
	if i < 0 {
		return false, nil
	}
	cur := &db.stories[i]
	cur.Title = s.Title
	cur.Story = s.Story
	cur.VisitedLocation = s.VisitedLocation
	cur.VisitedDate = s.VisitedDate
	cur.IsFavourite = s.IsFavourite
	cur.ImageURL = s.ImageURL
	return true, nil
}

// SetFavourite updates the favourite flag of the owner's story.
func (db *DB) SetFavourite(ctx context.Context, userID, id string, favourite bool) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	i := db.indexOf(userID, id)
	if i < 0 {
		return false, nil
	}
	db.stories[i].IsFavourite = favourite
	return true, nil
}

// DeleteStory removes the owner's story.
func (db *DB) DeleteStory(ctx context.Context, userID, id string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	i := db.indexOf(userID, id)
	if i < 0 {
		return false, nil
	}
	db.stories = append(db.stories[:i], db.stories[i+1:]...)
	return true, nil
}

// indexOf must be called with mu held.
func (db *DB) indexOf(userID, id string) int {
	for i, s := range db.stories {
		if s.ID == id && s.UserID == userID {
			return i
		}
	}
	return -1
}

func (db *DB) collect(userID string, keep func(domain.Story) bool) []domain.Story {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.Story, 0)
	for _, s := range db.stories {
		if s.UserID == userID && keep(s) {
			result = append(result, s)
		}
	}
	// favourites first, insertion order otherwise
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].IsFavourite && !result[j].IsFavourite
	})
	return result
}
