package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"strings"
	"sync"

	"donamaha/apperr"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxImageBytes is the largest accepted upload.
const MaxImageBytes = 2 << 20

// ImageStore keeps uploaded images. Keys are what the database stores.
type ImageStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}

// Images is the process-wide store, set by InitImageStore.
var Images ImageStore

// InitImageStore selects the store from STORAGE_DRIVER (s3, cloudinary or memory).
func InitImageStore(ctx context.Context) error {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_DRIVER"))) {
	case "", "s3", "r2":
		s, err := NewR2Store(ctx)
		if err != nil {
			return err
		}
		Images = s
	case "cloudinary":
		s, err := NewCloudinaryStore()
		if err != nil {
			return err
		}
		Images = s
	case "memory":
		Images = NewMemoryStore()
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", os.Getenv("STORAGE_DRIVER"))
	}
	return nil
}

var errNoStore = errors.New("image store not configured")

// SaveImage validates an uploaded image, re-encodes JPEG and PNG to strip
// metadata and stores it under folder. It returns the stored key.
func SaveImage(ctx context.Context, folder string, file multipart.File, header *multipart.FileHeader) (string, error) {
	if Images == nil {
		return "", errNoStore
	}
	if header != nil && header.Size > MaxImageBytes {
		return "", apperr.Field("image", "Gambar maksimal 2MB")
	}
	raw, err := io.ReadAll(io.LimitReader(file, MaxImageBytes+1))
	if err != nil {
		return "", apperr.Field("image", "Gagal membaca gambar")
	}
	if len(raw) > MaxImageBytes {
		return "", apperr.Field("image", "Gambar maksimal 2MB")
	}

	body, ext, contentType, err := sanitizeImage(raw)
	if err != nil {
		return "", err
	}
	key := folder + "/" + uuid.NewString() + ext
	if err := Images.Put(ctx, key, bytes.NewReader(body), int64(len(body)), contentType); err != nil {
		return "", err
	}
	return key, nil
}

func sanitizeImage(raw []byte) ([]byte, string, string, error) {
	mt := mimetype.Detect(raw)
	switch {
	case mt.Is("image/webp"):
		return raw, ".webp", "image/webp", nil
	case mt.Is("image/jpeg"), mt.Is("image/png"):
	default:
		return nil, "", "", apperr.Field("image", "Gambar harus JPG/PNG/WEBP")
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", "", apperr.Field("image", "Format gambar tidak valid")
	}
	var out bytes.Buffer
	switch format {
	case "jpeg":
		if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: 85}); err != nil {
			return nil, "", "", err
		}
		return out.Bytes(), ".jpg", "image/jpeg", nil
	case "png":
		if err := png.Encode(&out, img); err != nil {
			return nil, "", "", err
		}
		return out.Bytes(), ".png", "image/png", nil
	}
	return nil, "", "", apperr.Field("image", "Gambar harus JPG/PNG/WEBP")
}

// DeleteImage removes key from the store, logging instead of failing.
func DeleteImage(ctx context.Context, key *string) {
	if Images == nil || key == nil || *key == "" {
		return
	}
	if err := Images.Delete(ctx, *key); err != nil {
		slog.Warn("[storage] delete failed", "key", *key, "error", err)
	}
}

// ImageURL resolves a stored key to a URL, or nil when unset or unresolvable.
func ImageURL(ctx context.Context, key *string) *string {
	if Images == nil || key == nil || *key == "" {
		return nil
	}
	u, err := Images.URL(ctx, *key)
	if err != nil {
		slog.Warn("[storage] url failed", "key", *key, "error", err)
		return nil
	}
	return &u
}

// MemoryStore keeps images in process memory. It backs local development and tests.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: map[string][]byte{}}
}

func (m *MemoryStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = b
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

func (m *MemoryStore) URL(_ context.Context, key string) (string, error) {
	return "memory://" + key, nil
}

// Has reports whether key is stored.
func (m *MemoryStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[key]
	return ok
}
