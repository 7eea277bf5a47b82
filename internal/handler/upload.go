package handler

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const maxUploadSize = 10 << 20 // 10MB

// Upload stores a multipart file and returns its reference:
// POST /api/upload with form field "file".
// The returned fileUrl is opaque to the messaging core.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.writeError(w, http.StatusBadRequest, "file too large or malformed form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	if err := os.MkdirAll(h.cfg.UploadDir, 0o755); err != nil {
		h.log.Error().Err(err).Msg("upload dir create failed")
		h.writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}

	// Unique name: millisecond timestamp plus the original base name.
	name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), filepath.Base(header.Filename))
	dst, err := os.Create(filepath.Join(h.cfg.UploadDir, name))
	if err != nil {
		h.log.Error().Err(err).Msg("upload create failed")
		h.writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		h.log.Error().Err(err).Msg("upload write failed")
		h.writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"fileUrl": "/uploads/" + name})
}
