package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"travelstory/internal/domain"

	"github.com/google/uuid"
)

// StoryInput is the client-supplied part of a story.
type StoryInput struct {
	Title           string
	Story           string
	VisitedLocation string
	// VisitedDate is unix milliseconds, RFC 3339 or YYYY-MM-DD.
	VisitedDate string
	IsFavourite bool
	ImageURL    string
}

// StoryService implements story use cases. Every operation is scoped to the
// authenticated owner; operations on a single story go through owned.
type StoryService struct {
	repo        domain.StoryRepository
	media       domain.MediaHost
	placeholder string
	log         *slog.Logger
}

// NewStoryService creates a StoryService. media may be nil, in which case
// deleting a story never touches media.
func NewStoryService(repo domain.StoryRepository, media domain.MediaHost, placeholderImageURL string, log *slog.Logger) *StoryService {
	if log == nil {
		log = slog.Default()
	}
	return &StoryService{repo: repo, media: media, placeholder: placeholderImageURL, log: log}
}

// Create stores a new story owned by userID.
func (s *StoryService) Create(ctx context.Context, userID string, in StoryInput) (*domain.Story, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	visited, err := validateStoryInput(in)
	if err != nil {
		return nil, err
	}
	story := &domain.Story{
		ID:              uuid.NewString(),
		UserID:          userID,
		Title:           strings.TrimSpace(in.Title),
		Story:           in.Story,
		VisitedLocation: strings.TrimSpace(in.VisitedLocation),
		VisitedDate:     visited,
		IsFavourite:     in.IsFavourite,
		ImageURL:        strings.TrimSpace(in.ImageURL),
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.repo.CreateStory(ctx, story); err != nil {
		return nil, fmt.Errorf("%w: create story: %w", ErrUpstream, err)
	}
	return story, nil
}

// Get returns a single story owned by userID.
func (s *StoryService) Get(ctx context.Context, userID, id string) (*domain.Story, error) {
	return s.owned(ctx, userID, id)
}

// List returns every story owned by userID, favourites first.
func (s *StoryService) List(ctx context.Context, userID string) ([]domain.Story, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	stories, err := s.repo.ListStories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list stories: %w", ErrUpstream, err)
	}
	return nonNil(stories), nil
}

// Search returns stories owned by userID whose title, body or location
// contains query, ignoring case.
func (s *StoryService) Search(ctx context.Context, userID, query string) ([]domain.Story, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("query is required")
	}
	stories, err := s.repo.SearchStories(ctx, userID, query)
	if err != nil {
		return nil, fmt.Errorf("%w: search stories: %w", ErrUpstream, err)
	}
	return nonNil(stories), nil
}

// FilterByDate returns stories owned by userID visited between the start and
// end days inclusive. An empty end means the single start day.
func (s *StoryService) FilterByDate(ctx context.Context, userID, start, end string) ([]domain.Story, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if strings.TrimSpace(start) == "" {
		return nil, invalid("startDate is required")
	}
	from, err := ParseVisitedDate(start)
	if err != nil {
		return nil, invalid("invalid startDate")
	}
	to := from
	if strings.TrimSpace(end) != "" {
		if to, err = ParseVisitedDate(end); err != nil {
			return nil, invalid("invalid endDate")
		}
	}
	from = startOfDay(from)
	to = startOfDay(to).Add(24 * time.Hour)
	if !from.Before(to) {
		return nil, invalid("startDate must not be after endDate")
	}
	stories, err := s.repo.ListStoriesVisitedBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: filter stories: %w", ErrUpstream, err)
	}
	return nonNil(stories), nil
}

// Update replaces the editable fields of a story owned by userID. An empty
// image URL is replaced by the placeholder image.
func (s *StoryService) Update(ctx context.Context, userID, id string, in StoryInput) (*domain.Story, error) {
	visited, err := validateStoryInput(in)
	if err != nil {
		return nil, err
	}
	story, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	story.Title = strings.TrimSpace(in.Title)
	story.Story = in.Story
	story.VisitedLocation = strings.TrimSpace(in.VisitedLocation)
	story.VisitedDate = visited
	story.IsFavourite = in.IsFavourite
	story.ImageURL = strings.TrimSpace(in.ImageURL)
	if story.ImageURL == "" {
		story.ImageURL = s.placeholder
	}

	ok, err := s.repo.UpdateStory(ctx, story)
	if err != nil {
		return nil, fmt.Errorf("%w: update story: %w", ErrUpstream, err)
	}
	if !ok {
		// Deleted between the guard lookup and the update.
		return nil, ErrNotFoundOrForbidden
	}
	return story, nil
}

// SetFavourite sets the favourite flag of a story owned by userID.
func (s *StoryService) SetFavourite(ctx context.Context, userID, id string, favourite bool) (*domain.Story, error) {
	story, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.SetFavourite(ctx, userID, story.ID, favourite)
	if err != nil {
		return nil, fmt.Errorf("%w: set favourite: %w", ErrUpstream, err)
	}
	if !ok {
		return nil, ErrNotFoundOrForbidden
	}
	story.IsFavourite = favourite
	return story, nil
}

// Delete removes a story owned by userID. If the story's image lives on the
// media host it is deleted too; failing to do so is logged and otherwise
// ignored, the story removal stands.
func (s *StoryService) Delete(ctx context.Context, userID, id string) error {
	story, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	ok, err := s.repo.DeleteStory(ctx, userID, story.ID)
	if err != nil {
		return fmt.Errorf("%w: delete story: %w", ErrUpstream, err)
	}
	if !ok {
		return ErrNotFoundOrForbidden
	}
	s.deleteMedia(ctx, story)
	return nil
}

func (s *StoryService) deleteMedia(ctx context.Context, story *domain.Story) {
	if s.media == nil || story.ImageURL == "" {
		return
	}
	mediaID, ok := s.media.IDFromURL(story.ImageURL)
	if !ok {
		return
	}
	found, err := s.media.Delete(ctx, mediaID)
	if err != nil {
		s.log.WarnContext(ctx, "story image cleanup failed",
			"story_id", story.ID, "media_id", mediaID, "error", err)
		return
	}
	s.log.InfoContext(ctx, "story image deleted", "story_id", story.ID, "media_id", mediaID, "found", found)
}

// owned fetches the story with id scoped to userID. Missing stories and
// stories of other owners yield the same ErrNotFoundOrForbidden.
func (s *StoryService) owned(ctx context.Context, userID, id string) (*domain.Story, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFoundOrForbidden
	}
	story, err := s.repo.GetStory(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("%w: get story: %w", ErrUpstream, err)
	}
	if story == nil || story.UserID != userID {
		return nil, ErrNotFoundOrForbidden
	}
	return story, nil
}

func validateStoryInput(in StoryInput) (time.Time, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Story) == "" ||
		strings.TrimSpace(in.VisitedLocation) == "" || strings.TrimSpace(in.VisitedDate) == "" {
		return time.Time{}, invalid("all fields are required")
	}
	visited, err := ParseVisitedDate(in.VisitedDate)
	if err != nil {
		return time.Time{}, invalid("invalid date format")
	}
	return visited, nil
}

// ParseVisitedDate accepts unix milliseconds, RFC 3339 or YYYY-MM-DD and
// returns the instant in UTC.
func ParseVisitedDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func nonNil(stories []domain.Story) []domain.Story {
	if stories == nil {
		return []domain.Story{}
	}
	return stories
}
