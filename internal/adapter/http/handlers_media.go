package adapthttp

import (
	"errors"
	"fmt"
	"net/http"
)

// multipartOverhead covers boundaries and part headers around the file.
const multipartOverhead = 64 << 10

func (s *Server) handleImageUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.media.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || r.ContentLength > maxBytes+multipartOverhead {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("file exceeds the %d byte limit", maxBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close() //nolint:errcheck

	obj, err := s.media.Upload(r.Context(), file, header.Size)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{"imageUrl": obj.URL, "public_id": obj.ID})
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	if err := s.media.Delete(r.Context(), r.PathValue("publicId")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"message": "Image deleted successfully"})
}
