package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"travelstory/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStoryRepo struct {
	createFn       func(ctx context.Context, s *domain.Story) error
	getFn          func(ctx context.Context, userID, id string) (*domain.Story, error)
	listFn         func(ctx context.Context, userID string) ([]domain.Story, error)
	searchFn       func(ctx context.Context, userID, query string) ([]domain.Story, error)
	betweenFn      func(ctx context.Context, userID string, from, to time.Time) ([]domain.Story, error)
	updateFn       func(ctx context.Context, s *domain.Story) (bool, error)
	setFavouriteFn func(ctx context.Context, userID, id string, favourite bool) (bool, error)
	deleteFn       func(ctx context.Context, userID, id string) (bool, error)
}

func (m *mockStoryRepo) CreateStory(ctx context.Context, s *domain.Story) error {
	if m.createFn != nil {
		return m.createFn(ctx, s)
	}
	return nil
}

func (m *mockStoryRepo) GetStory(ctx context.Context, userID, id string) (*domain.Story, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, id)
	}
	return nil, nil
}

func (m *mockStoryRepo) ListStories(ctx context.Context, userID string) ([]domain.Story, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockStoryRepo) SearchStories(ctx context.Context, userID, query string) ([]domain.Story, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, userID, query)
	}
	return nil, nil
}

func (m *mockStoryRepo) ListStoriesVisitedBetween(ctx context.Context, userID string, from, to time.Time) ([]domain.Story, error) {
	if m.betweenFn != nil {
		return m.betweenFn(ctx, userID, from, to)
	}
	return nil, nil
}

func (m *mockStoryRepo) UpdateStory(ctx context.Context, s *domain.Story) (bool, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, s)
	}
	return true, nil
}

func (m *mockStoryRepo) SetFavourite(ctx context.Context, userID, id string, favourite bool) (bool, error) {
	if m.setFavouriteFn != nil {
		return m.setFavouriteFn(ctx, userID, id, favourite)
	}
	return true, nil
}

func (m *mockStoryRepo) DeleteStory(ctx context.Context, userID, id string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, id)
	}
	return true, nil
}

type mockMediaHost struct {
	uploadFn func(ctx context.Context, contentType, ext string, body io.Reader, size int64) (*domain.MediaObject, error)
	deleteFn func(ctx context.Context, id string) (bool, error)
	prefix   string
}

func (m *mockMediaHost) Upload(ctx context.Context, contentType, ext string, body io.Reader, size int64) (*domain.MediaObject, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, contentType, ext, body, size)
	}
	return &domain.MediaObject{ID: "img" + ext, URL: m.prefix + "img" + ext}, nil
}

func (m *mockMediaHost) Delete(ctx context.Context, id string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return true, nil
}

func (m *mockMediaHost) IDFromURL(url string) (string, bool) {
	id, ok := strings.CutPrefix(url, m.prefix)
	return id, ok && id != ""
}

// storyStore is a minimal owner-scoped repository used by the guard tests.
func storyStore(stories ...domain.Story) *mockStoryRepo {
	find := func(userID, id string) *domain.Story {
		for i := range stories {
			if stories[i].ID == id && stories[i].UserID == userID {
				s := stories[i]
				return &s
			}
		}
		return nil
	}
	return &mockStoryRepo{
		getFn: func(ctx context.Context, userID, id string) (*domain.Story, error) {
			return find(userID, id), nil
		},
		updateFn: func(ctx context.Context, s *domain.Story) (bool, error) {
			return find(s.UserID, s.ID) != nil, nil
		},
		setFavouriteFn: func(ctx context.Context, userID, id string, favourite bool) (bool, error) {
			return find(userID, id) != nil, nil
		},
		deleteFn: func(ctx context.Context, userID, id string) (bool, error) {
			return find(userID, id) != nil, nil
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validInput() StoryInput {
	return StoryInput{
		Title:           "Kyoto",
		Story:           "Temples and tea",
		VisitedLocation: "Japan",
		VisitedDate:     "1714521600000",
	}
}

func TestStoryService_Create(t *testing.T) {
	var stored *domain.Story
	repo := &mockStoryRepo{
		createFn: func(ctx context.Context, s *domain.Story) error {
			stored = s
			return nil
		},
	}
	svc := NewStoryService(repo, nil, "/placeholder.png", discardLogger())

	story, err := svc.Create(context.Background(), "alice", validInput())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "alice", story.UserID)
	assert.Equal(t, time.UnixMilli(1714521600000).UTC(), story.VisitedDate)
	_, err = uuid.Parse(story.ID)
	assert.NoError(t, err)
	assert.Empty(t, story.ImageURL)
}

func TestStoryService_Create_Validation(t *testing.T) {
	repo := &mockStoryRepo{
		createFn: func(ctx context.Context, s *domain.Story) error {
			t.Error("store must not be called for invalid input")
			return nil
		},
	}
	svc := NewStoryService(repo, nil, "", discardLogger())

	missing := validInput()
	missing.VisitedLocation = "  "
	_, err := svc.Create(context.Background(), "alice", missing)
	assert.ErrorIs(t, err, ErrValidation)
	assert.EqualError(t, err, "all fields are required")

	badDate := validInput()
	badDate.VisitedDate = "yesterday"
	_, err = svc.Create(context.Background(), "alice", badDate)
	assert.ErrorIs(t, err, ErrValidation)
	assert.EqualError(t, err, "invalid date format")
}

func TestStoryService_RequiresAuthenticatedUser(t *testing.T) {
	called := false
	repo := &mockStoryRepo{
		getFn: func(ctx context.Context, userID, id string) (*domain.Story, error) {
			called = true
			return nil, nil
		},
		listFn: func(ctx context.Context, userID string) ([]domain.Story, error) {
			called = true
			return nil, nil
		},
	}
	svc := NewStoryService(repo, nil, "", discardLogger())
	ctx := context.Background()
	id := uuid.NewString()

	_, err := svc.List(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Get(ctx, "", id)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Update(ctx, "", id, validInput())
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, svc.Delete(ctx, "", id), ErrUnauthenticated)
	assert.False(t, called, "store must not be touched without a user")
}

func TestStoryService_CrossOwnerLooksLikeMissing(t *testing.T) {
	aliceStory := domain.Story{ID: uuid.NewString(), UserID: "alice", Title: "mine", ImageURL: "https://cdn/x.png"}
	mediaDeleted := false
	media := &mockMediaHost{
		prefix: "https://cdn/",
		deleteFn: func(ctx context.Context, id string) (bool, error) {
			mediaDeleted = true
			return true, nil
		},
	}
	svc := NewStoryService(storyStore(aliceStory), media, "", discardLogger())
	ctx := context.Background()
	missingID := uuid.NewString()

	for _, id := range []string{aliceStory.ID, missingID} {
		_, err := svc.Get(ctx, "bob", id)
		assert.Equal(t, ErrNotFoundOrForbidden, err)

		_, err = svc.Update(ctx, "bob", id, validInput())
		assert.Equal(t, ErrNotFoundOrForbidden, err)

		_, err = svc.SetFavourite(ctx, "bob", id, true)
		assert.Equal(t, ErrNotFoundOrForbidden, err)

		assert.Equal(t, ErrNotFoundOrForbidden, svc.Delete(ctx, "bob", id))
	}
	assert.False(t, mediaDeleted, "media must not be deleted for another owner's story")

	got, err := svc.Get(ctx, "alice", aliceStory.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Title)
}

func TestStoryService_InvalidIDSkipsStore(t *testing.T) {
	repo := &mockStoryRepo{
		getFn: func(ctx context.Context, userID, id string) (*domain.Story, error) {
			t.Error("store must not be queried with a malformed id")
			return nil, nil
		},
	}
	svc := NewStoryService(repo, nil, "", discardLogger())

	_, err := svc.Get(context.Background(), "alice", "not-a-uuid")
	assert.Equal(t, ErrNotFoundOrForbidden, err)
	assert.Equal(t, ErrNotFoundOrForbidden, svc.Delete(context.Background(), "alice", "../etc"))
}

func TestStoryService_GuardRejectsForeignRecord(t *testing.T) {
	// A store that ignores the owner filter must still not leak.
	id := uuid.NewString()
	repo := &mockStoryRepo{
		getFn: func(ctx context.Context, userID, sid string) (*domain.Story, error) {
			return &domain.Story{ID: sid, UserID: "alice"}, nil
		},
	}
	svc := NewStoryService(repo, nil, "", discardLogger())

	_, err := svc.Get(context.Background(), "bob", id)
	assert.Equal(t, ErrNotFoundOrForbidden, err)
}

func TestStoryService_Update(t *testing.T) {
	story := domain.Story{ID: uuid.NewString(), UserID: "alice", Title: "old", ImageURL: "https://cdn/a.png"}
	var updates []domain.Story
	repo := storyStore(story)
	repo.updateFn = func(ctx context.Context, s *domain.Story) (bool, error) {
		updates = append(updates, *s)
		return true, nil
	}
	svc := NewStoryService(repo, nil, "/placeholder.png", discardLogger())

	in := validInput()
	in.Title = "new"
	first, err := svc.Update(context.Background(), "alice", story.ID, in)
	require.NoError(t, err)
	second, err := svc.Update(context.Background(), "alice", story.ID, in)
	require.NoError(t, err)

	assert.Equal(t, "new", first.Title)
	assert.Equal(t, "/placeholder.png", first.ImageURL)
	assert.Equal(t, first, second, "repeating an edit should be idempotent")
	require.Len(t, updates, 2)
	assert.Equal(t, "alice", updates[0].UserID)
}

func TestStoryService_Update_LostRace(t *testing.T) {
	story := domain.Story{ID: uuid.NewString(), UserID: "alice"}
	repo := storyStore(story)
	repo.updateFn = func(ctx context.Context, s *domain.Story) (bool, error) {
		return false, nil
	}
	svc := NewStoryService(repo, nil, "", discardLogger())

	_, err := svc.Update(context.Background(), "alice", story.ID, validInput())
	assert.Equal(t, ErrNotFoundOrForbidden, err)
}

func TestStoryService_SetFavourite(t *testing.T) {
	story := domain.Story{ID: uuid.NewString(), UserID: "alice"}
	svc := NewStoryService(storyStore(story), nil, "", discardLogger())

	got, err := svc.SetFavourite(context.Background(), "alice", story.ID, true)
	require.NoError(t, err)
	assert.True(t, got.IsFavourite)
}

func TestStoryService_Delete_RemovesHostedImage(t *testing.T) {
	story := domain.Story{ID: uuid.NewString(), UserID: "alice", ImageURL: "https://cdn/abc.png"}
	var deletedID string
	media := &mockMediaHost{
		prefix: "https://cdn/",
		deleteFn: func(ctx context.Context, id string) (bool, error) {
			deletedID = id
			return true, nil
		},
	}
	svc := NewStoryService(storyStore(story), media, "", discardLogger())

	require.NoError(t, svc.Delete(context.Background(), "alice", story.ID))
	assert.Equal(t, "abc.png", deletedID)
}

func TestStoryService_Delete_IgnoresForeignImage(t *testing.T) {
	story := domain.Story{ID: uuid.NewString(), UserID: "alice", ImageURL: "/placeholder.png"}
	media := &mockMediaHost{
		prefix: "https://cdn/",
		deleteFn: func(ctx context.Context, id string) (bool, error) {
			t.Error("image not hosted by the media host must not be deleted")
			return false, nil
		},
	}
	svc := NewStoryService(storyStore(story), media, "/placeholder.png", discardLogger())

	assert.NoError(t, svc.Delete(context.Background(), "alice", story.ID))
}

func TestStoryService_Delete_MediaFailureIsLogged(t *testing.T) {
	story := domain.Story{ID: uuid.NewString(), UserID: "alice", ImageURL: "https://cdn/abc.png"}
	storyDeleted := false
	repo := storyStore(story)
	repo.deleteFn = func(ctx context.Context, userID, id string) (bool, error) {
		storyDeleted = true
		return true, nil
	}
	media := &mockMediaHost{
		prefix: "https://cdn/",
		deleteFn: func(ctx context.Context, id string) (bool, error) {
			return false, errors.New("s3 unavailable")
		},
	}
	var buf bytes.Buffer
	svc := NewStoryService(repo, media, "", slog.New(slog.NewTextHandler(&buf, nil)))

	err := svc.Delete(context.Background(), "alice", story.ID)
	assert.NoError(t, err)
	assert.True(t, storyDeleted)
	assert.Contains(t, buf.String(), "story image cleanup failed")
	assert.Contains(t, buf.String(), "s3 unavailable")
}

func TestStoryService_Delete_StoreFailure(t *testing.T) {
	story := domain.Story{ID: uuid.NewString(), UserID: "alice"}
	repo := storyStore(story)
	repo.deleteFn = func(ctx context.Context, userID, id string) (bool, error) {
		return false, errors.New("db down")
	}
	svc := NewStoryService(repo, nil, "", discardLogger())

	assert.ErrorIs(t, svc.Delete(context.Background(), "alice", story.ID), ErrUpstream)
}

func TestStoryService_ListAndSearch(t *testing.T) {
	repo := &mockStoryRepo{
		searchFn: func(ctx context.Context, userID, query string) ([]domain.Story, error) {
			assert.Equal(t, "alice", userID)
			assert.Equal(t, "paris", query)
			return []domain.Story{{ID: "1"}}, nil
		},
	}
	svc := NewStoryService(repo, nil, "", discardLogger())
	ctx := context.Background()

	list, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	found, err := svc.Search(ctx, "alice", "  paris ")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = svc.Search(ctx, "alice", " ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStoryService_FilterByDate(t *testing.T) {
	var gotFrom, gotTo time.Time
	repo := &mockStoryRepo{
		betweenFn: func(ctx context.Context, userID string, from, to time.Time) ([]domain.Story, error) {
			gotFrom, gotTo = from, to
			return nil, nil
		},
	}
	svc := NewStoryService(repo, nil, "", discardLogger())
	ctx := context.Background()

	_, err := svc.FilterByDate(ctx, "alice", "2024-05-01", "2024-05-03")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), gotFrom)
	assert.Equal(t, time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC), gotTo)

	_, err = svc.FilterByDate(ctx, "alice", "2024-05-01T15:30:00Z", "")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), gotFrom)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), gotTo)

	_, err = svc.FilterByDate(ctx, "alice", "2024-05-03", "2024-05-01")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.FilterByDate(ctx, "alice", "", "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.FilterByDate(ctx, "alice", "garbage", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParseVisitedDate(t *testing.T) {
	want := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"1714521600000", "2024-05-01T00:00:00Z", "2024-05-01T02:00:00+02:00", "2024-05-01"} {
		got, err := ParseVisitedDate(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s parsed as %s", in, got)
	}
	_, err := ParseVisitedDate("05/01/2024")
	assert.Error(t, err)
}
