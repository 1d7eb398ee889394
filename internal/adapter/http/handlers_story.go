package adapthttp

import (
	"bytes"
	"encoding/json"
	"net/http"

	"travelstory/internal/app"
)

type storyRequest struct {
	Title           string          `json:"title"`
	Story           string          `json:"story"`
	VisitedLocation string          `json:"visitedLocation"`
	VisitedDate     json.RawMessage `json:"visitedDate"`
	ImageURL        string          `json:"imageUrl"`
	IsFavourite     bool            `json:"isFavourite"`
}

func (req storyRequest) input() app.StoryInput {
	return app.StoryInput{
		Title:           req.Title,
		Story:           req.Story,
		VisitedLocation: req.VisitedLocation,
		VisitedDate:     rawDate(req.VisitedDate),
		IsFavourite:     req.IsFavourite,
		ImageURL:        req.ImageURL,
	}
}

// rawDate turns a JSON number or string into the string form the story
// service parses. Anything else becomes "" and fails validation.
func rawDate(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func (s *Server) handleAddStory(w http.ResponseWriter, r *http.Request) {
	var req storyRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	story, err := s.stories.Create(r.Context(), userIDFromContext(r.Context()), req.input())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{"travelStory": story, "message": "Travel story added successfully"})
}

func (s *Server) handleGetAllStories(w http.ResponseWriter, r *http.Request) {
	stories, err := s.stories.List(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"travelStories": stories})
}

func (s *Server) handleGetStory(w http.ResponseWriter, r *http.Request) {
	story, err := s.stories.Get(r.Context(), userIDFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"travelStory": story})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	stories, err := s.stories.Search(r.Context(), userIDFromContext(r.Context()), r.URL.Query().Get("query"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"searchResults": stories})
}

func (s *Server) handleFilterByDate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stories, err := s.stories.FilterByDate(r.Context(), userIDFromContext(r.Context()), q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"travelStories": stories})
}

func (s *Server) handleEditStory(w http.ResponseWriter, r *http.Request) {
	var req storyRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	story, err := s.stories.Update(r.Context(), userIDFromContext(r.Context()), r.PathValue("id"), req.input())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"updatedStory": story, "message": "Story updated successfully"})
}

func (s *Server) handleUpdateFavourite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsFavourite *bool `json:"isFavourite"`
	}
	if err := parseJSON(r, &req); err != nil || req.IsFavourite == nil {
		writeError(w, http.StatusBadRequest, "isFavourite is required")
		return
	}
	story, err := s.stories.SetFavourite(r.Context(), userIDFromContext(r.Context()), r.PathValue("id"), *req.IsFavourite)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"updatedStory": story, "message": "Story updated successfully"})
}

func (s *Server) handleDeleteStory(w http.ResponseWriter, r *http.Request) {
	if err := s.stories.Delete(r.Context(), userIDFromContext(r.Context()), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"message": "Story deleted successfully"})
}
