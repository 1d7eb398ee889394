package adapthttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"

	"travelstory/internal/app"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeOK writes a success envelope with the given payload fields.
func writeOK(w http.ResponseWriter, status int, payload map[string]any) {
	body := map[string]any{"error": false}
	for k, v := range payload {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": true, "message": message})
}

// fail maps an application error to a status and a client-safe message.
// Internal details only reach the log.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *app.ValidationError
	switch {
	case errors.Is(err, app.ErrUnauthenticated),
		errors.Is(err, app.ErrInvalidCredential),
		errors.Is(err, app.ErrExpiredCredential),
		errors.Is(err, app.ErrInvalidLogin),
		errors.Is(err, app.ErrUnverifiedEmail):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrNotFoundOrForbidden),
		errors.Is(err, app.ErrMediaNotFound),
		errors.Is(err, app.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrUserExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Msg)
	case errors.Is(err, app.ErrUpstream):
		s.log.ErrorContext(r.Context(), "upstream failure", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadGateway, app.ErrUpstream.Error())
	default:
		s.log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Server Error")
	}
}

// parseJSON decodes the body into dst, ignoring fields dst does not declare.
// Clients post whole stories back, server-set fields included.
func parseJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

// parseStrictJSON is parseJSON that rejects unknown fields.
func parseStrictJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func withNoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func spaFromDisk(dir string) http.Handler {
	fileServer := http.FileServer(http.Dir(dir))
	indexPath := path.Join(dir, "index.html")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqPath := path.Clean(r.URL.Path)
		if reqPath == "/" {
			http.ServeFile(w, r, indexPath)
			return
		}

		staticPath := path.Join(dir, reqPath)
		if _, err := os.Stat(staticPath); err == nil {
			fileServer.ServeHTTP(w, r)
			return
		}

		http.ServeFile(w, r, indexPath)
	})
}
