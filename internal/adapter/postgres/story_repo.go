package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"travelstory/internal/domain"
)

const storyColumns = "id, user_id, title, story, visited_location, visited_date, is_favourite, image_url, created_at"

// Owner listings share one order: favourites first, then oldest first.
const storyOrder = " ORDER BY is_favourite DESC, created_at, id"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// CreateStory inserts a new story.
func (d *DB) CreateStory(ctx context.Context, s *domain.Story) error {
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO stories ("+storyColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);",
		s.ID, s.UserID, s.Title, s.Story, s.VisitedLocation, s.VisitedDate.UTC(), s.IsFavourite, s.ImageURL, s.CreatedAt.UTC(),
	)
	return err
}

// GetStory returns the story with id owned by userID, or nil.
func (d *DB) GetStory(ctx context.Context, userID, id string) (*domain.Story, error) {
	row := d.sql.QueryRowContext(ctx,
		"SELECT "+storyColumns+" FROM stories WHERE id=$1 AND user_id=$2;", id, userID)
	s, err := scanStory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListStories returns every story owned by userID.
func (d *DB) ListStories(ctx context.Context, userID string) ([]domain.Story, error) {
	return d.queryStories(ctx,
		"SELECT "+storyColumns+" FROM stories WHERE user_id=$1"+storyOrder+";", userID)
}

// SearchStories returns stories owned by userID whose title, story or
// visited location contains query, ignoring case.
func (d *DB) SearchStories(ctx context.Context, userID, query string) ([]domain.Story, error) {
	pattern := "%" + escapeLike(query) + "%"
	return d.queryStories(ctx,
		"SELECT "+storyColumns+" FROM stories WHERE user_id=$1 AND (title ILIKE $2 OR story ILIKE $2 OR visited_location ILIKE $2)"+storyOrder+";",
		userID, pattern)
}

// ListStoriesVisitedBetween returns stories owned by userID with from <= visited_date < to.
func (d *DB) ListStoriesVisitedBetween(ctx context.Context, userID string, from, to time.Time) ([]domain.Story, error) {
	return d.queryStories(ctx,
		"SELECT "+storyColumns+" FROM stories WHERE user_id=$1 AND visited_date >= $2 AND visited_date < $3"+storyOrder+";",
		userID, from.UTC(), to.UTC())
}

// UpdateStory overwrites the editable fields of a story scoped to its owner.
func (d *DB) UpdateStory(ctx context.Context, s *domain.Story) (bool, error) {
	res, err := d.sql.ExecContext(ctx,
		"UPDATE stories SET title=$1, story=$2, visited_location=$3, visited_date=$4, is_favourite=$5, image_url=$6 WHERE id=$7 AND user_id=$8;",
		s.Title, s.Story, s.VisitedLocation, s.VisitedDate.UTC(), s.IsFavourite, s.ImageURL, s.ID, s.UserID,
	)
	return affected(res, err)
}

// SetFavourite updates the favourite flag of a story scoped to its owner.
func (d *DB) SetFavourite(ctx context.Context, userID, id string, favourite bool) (bool, error) {
	res, err := d.sql.ExecContext(ctx,
		"UPDATE stories SET is_favourite=$1 WHERE id=$2 AND user_id=$3;", favourite, id, userID)
	return affected(res, err)
}

// DeleteStory removes a story scoped to its owner.
func (d *DB) DeleteStory(ctx context.Context, userID, id string) (bool, error) {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM stories WHERE id=$1 AND user_id=$2;", id, userID)
	return affected(res, err)
}

func (d *DB) queryStories(ctx context.Context, query string, args ...any) ([]domain.Story, error) {
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := make([]domain.Story, 0)
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStory(r rowScanner) (*domain.Story, error) {
	var s domain.Story
	if err := r.Scan(&s.ID, &s.UserID, &s.Title, &s.Story, &s.VisitedLocation,
		&s.VisitedDate, &s.IsFavourite, &s.ImageURL, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.VisitedDate = s.VisitedDate.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
