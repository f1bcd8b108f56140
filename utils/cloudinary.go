package utils

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore keeps images on Cloudinary. Keys map to public ids by
// dropping the file extension.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStore builds a store from CLOUDINARY_CLOUD_NAME,
// CLOUDINARY_API_KEY, CLOUDINARY_API_SECRET and CLOUDINARY_FOLDER.
func NewCloudinaryStore() (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(
		os.Getenv("CLOUDINARY_CLOUD_NAME"),
		os.Getenv("CLOUDINARY_API_KEY"),
		os.Getenv("CLOUDINARY_API_SECRET"),
	)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config error: %w", err)
	}
	folder := strings.Trim(os.Getenv("CLOUDINARY_FOLDER"), "/")
	if folder == "" {
		folder = "donamaha"
	}
	return &CloudinaryStore{cld: cld, folder: folder}, nil
}

func (s *CloudinaryStore) publicID(key string) string {
	return path.Join(s.folder, strings.TrimSuffix(key, path.Ext(key)))
}

func (s *CloudinaryStore) Put(ctx context.Context, key string, body io.Reader, _ int64, _ string) error {
	_, err := s.cld.Upload.Upload(ctx, body, uploader.UploadParams{
		PublicID:  s.publicID(key),
		Overwrite: api.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("upload error: %w", err)
	}
	return nil
}

func (s *CloudinaryStore) URL(_ context.Context, key string) (string, error) {
	img, err := s.cld.Image(s.publicID(key))
	if err != nil {
		return "", err
	}
	img.Config.URL.Secure = true
	return img.String()
}

func (s *CloudinaryStore) Delete(ctx context.Context, key string) error {
	_, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: s.publicID(key)})
	if err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	return nil
}
