package handler

import (
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/quentin-drucker/snaphunt/internal/api/apierr"
	"github.com/quentin-drucker/snaphunt/internal/api/response"
	"github.com/quentin-drucker/snaphunt/internal/services/round"
)

// maxUploadBytes caps photo uploads; phone photos comfortably fit
const maxUploadBytes = 16 << 20

// UploadHandler receives photo submissions and routes them through the
// round coordinator.
type UploadHandler struct {
	coordinator *round.Coordinator
	uploadDir   string
	logger      *slog.Logger
}

// NewUploadHandler creates a new upload handler. An empty uploadDir falls
// back to the system temp directory.
func NewUploadHandler(coordinator *round.Coordinator, uploadDir string, logger *slog.Logger) *UploadHandler {
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	return &UploadHandler{
		coordinator: coordinator,
		uploadDir:   uploadDir,
		logger:      logger.With(slog.String("component", "upload")),
	}
}

// Upload handles POST /api/upload (multipart: image, username, targetLabel).
// The uploaded image is spooled to a temp file that is removed after
// classification no matter how the submission resolves.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid multipart body"))
		return
	}

	username := r.FormValue("username")
	targetLabel := r.FormValue("targetLabel")
	if username == "" || targetLabel == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("username and targetLabel are required"))
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("image file is required"))
		return
	}
	defer file.Close()

	tmpPath, err := h.spoolUpload(file)
	if err != nil {
		h.logger.Error("failed to spool upload", slog.String("error", err.Error()))
		apierr.WriteError(w, apierr.NewUploadFailedError())
		return
	}
	defer func() {
		if err := os.Remove(tmpPath); err != nil {
			h.logger.Warn("failed to delete uploaded file",
				slog.String("path", tmpPath),
				slog.String("error", err.Error()))
		}
	}()

	image, err := os.ReadFile(tmpPath)
	if err != nil {
		h.logger.Error("failed to read uploaded file", slog.String("error", err.Error()))
		apierr.WriteError(w, apierr.NewUploadFailedError())
		return
	}

	h.logger.Info("photo submitted",
		slog.String("username", username),
		slog.String("target_label", targetLabel),
		slog.Int("bytes", len(image)),
	)

	result := h.coordinator.SubmitPhoto(r.Context(), username, targetLabel, image)
	response.JSON(w, http.StatusOK, response.UploadFromResult(result))
}

// spoolUpload writes the multipart file to a temp file in the upload dir
func (h *UploadHandler) spoolUpload(file io.Reader) (string, error) {
	tmp, err := os.CreateTemp(h.uploadDir, "upload-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
