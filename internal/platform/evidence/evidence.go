// Package evidence stores the clinical proof attached to material usage:
// intra-op photos, lot sticker scans, radiographs. Uploading returns an
// opaque reference string; usage records store only that reference.
package evidence

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var (
	ErrEvidenceNotFound   = errors.New("evidence not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
	ErrMissingFileName    = errors.New("file name is required")
)

// MaxFileSize caps a single evidence file at 50 MB.
const MaxFileSize = 50 * 1024 * 1024

// AllowedCategories lists valid evidence category values.
var AllowedCategories = map[string]bool{
	"clinical-photo": true,
	"sticker-scan":   true,
	"radiograph":     true,
	"consent-form":   true,
	"other":          true,
}

// AllowedContentTypes lists accepted evidence MIME types.
var AllowedContentTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/heic":      true,
	"application/pdf": true,
	"text/plain":      true,
}

// Metadata describes a stored evidence file. Ref is the string usage records
// carry.
type Metadata struct {
	ID          string    `json:"id"`
	Ref         string    `json:"ref"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CaseID      string    `json:"case_id,omitempty"`
	Category    string    `json:"category"`
	Hash        string    `json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by"`
}

// Store is the contract for evidence backends.
type Store interface {
	Put(ctx context.Context, meta Metadata, content io.Reader) (*Metadata, error)
	Get(ctx context.Context, ref string) (io.ReadCloser, *Metadata, error)
	Stat(ctx context.Context, ref string) (*Metadata, error)
	ListByCase(ctx context.Context, caseID string) ([]*Metadata, error)
}

// -- In-memory implementation --

type storedFile struct {
	metadata Metadata
	content  []byte
}

// MemoryStore is a thread-safe in-memory Store for development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string]*storedFile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string]*storedFile)}
}

// refID strips the "evidence/" prefix so both the bare id and the full
// reference resolve.
func refID(ref string) string {
	return strings.TrimPrefix(ref, "evidence/")
}

func (s *MemoryStore) Put(_ context.Context, meta Metadata, content io.Reader) (*Metadata, error) {
	if meta.FileName == "" {
		return nil, ErrMissingFileName
	}
	if meta.ContentType != "" && !AllowedContentTypes[meta.ContentType] {
		return nil, fmt.Errorf("%s: %w", meta.ContentType, ErrInvalidContentType)
	}
	if meta.Category == "" {
		meta.Category = "other"
	}
	if !AllowedCategories[meta.Category] {
		return nil, fmt.Errorf("invalid category: %s", meta.Category)
	}

	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	h := sha256.Sum256(data)
	meta.ID = uuid.New().String()
	meta.Ref = "evidence/" + meta.ID
	meta.Size = int64(len(data))
	meta.Hash = fmt.Sprintf("%x", h)
	meta.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	s.files[meta.ID] = &storedFile{metadata: meta, content: data}
	s.mu.Unlock()

	out := meta
	return &out, nil
}

func (s *MemoryStore) Get(_ context.Context, ref string) (io.ReadCloser, *Metadata, error) {
	s.mu.RLock()
	f, ok := s.files[refID(ref)]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrEvidenceNotFound
	}
	meta := f.metadata
	return io.NopCloser(bytes.NewReader(f.content)), &meta, nil
}

func (s *MemoryStore) Stat(_ context.Context, ref string) (*Metadata, error) {
	s.mu.RLock()
	f, ok := s.files[refID(ref)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrEvidenceNotFound
	}
	meta := f.metadata
	return &meta, nil
}

func (s *MemoryStore) ListByCase(_ context.Context, caseID string) ([]*Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []*Metadata
	for _, f := range s.files {
		if f.metadata.CaseID == caseID {
			m := f.metadata
			items = append(items, &m)
		}
	}
	return items, nil
}

// -- HTTP handler --

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/evidence", h.handleUpload)
	g.GET("/evidence/:id", h.handleDownload)
	g.GET("/evidence/:id/metadata", h.handleStat)
	g.GET("/cases/:id/evidence", h.handleListByCase)
}

func (h *Handler) handleUpload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file is required"})
	}
	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to open uploaded file"})
	}
	defer src.Close()

	meta := Metadata{
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		CaseID:      c.FormValue("case_id"),
		Category:    c.FormValue("category"),
		CreatedBy:   c.FormValue("created_by"),
	}

	result, err := h.store.Put(c.Request().Context(), meta, src)
	if err != nil {
		switch {
		case errors.Is(err, ErrFileTooLarge):
			return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrMissingFileName):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrInvalidContentType):
			return c.JSON(http.StatusUnsupportedMediaType, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) handleDownload(c echo.Context) error {
	rc, meta, err := h.store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrEvidenceNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	defer rc.Close()

	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, meta.FileName))
	return c.Stream(http.StatusOK, meta.ContentType, rc)
}

func (h *Handler) handleStat(c echo.Context) error {
	meta, err := h.store.Stat(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrEvidenceNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, meta)
}

func (h *Handler) handleListByCase(c echo.Context) error {
	items, err := h.store.ListByCase(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if items == nil {
		items = []*Metadata{}
	}
	return c.JSON(http.StatusOK, items)
}
