package domain

import (
	"context"
	"time"
)

// Story is a single travel journal entry. UserID is set at creation and never
// reassigned.
type Story struct {
	ID              string    `json:"_id"`
	UserID          string    `json:"userId"`
	Title           string    `json:"title"`
	Story           string    `json:"story"`
	VisitedLocation string    `json:"visitedLocation"`
	VisitedDate     time.Time `json:"visitedDate"`
	IsFavourite     bool      `json:"isFavourite"`
	ImageURL        string    `json:"imageUrl"`
	CreatedAt       time.Time `json:"createdOn"`
}

// StoryRepository is the port for story persistence.
//
// Every method is scoped by owner. Single-story lookups return (nil, nil) when
// no story matches both the id and the owner. List-style methods return
// favourites first, then insertion order.
type StoryRepository interface {
	CreateStory(ctx context.Context, s *Story) error
	GetStory(ctx context.Context, userID, id string) (*Story, error)
	ListStories(ctx context.Context, userID string) ([]Story, error)
	SearchStories(ctx context.Context, userID, query string) ([]Story, error)
	ListStoriesVisitedBetween(ctx context.Context, userID string, from, to time.Time) ([]Story, error)
	UpdateStory(ctx context.Context, s *Story) (bool, error)
	SetFavourite(ctx context.Context, userID, id string, favourite bool) (bool, error)
	DeleteStory(ctx context.Context, userID, id string) (bool, error)
}
