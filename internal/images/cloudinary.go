// Package images hosts product images on Cloudinary.
package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

type Store struct {
	api    uploadAPI
	folder string
}

func NewCloudinaryStore(cloudName, apiKey, apiSecret, folder string) (*Store, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to init cloudinary: %w", err)
	}
	return newStore(&cld.Upload, folder), nil
}

func newStore(api uploadAPI, folder string) *Store {
	return &Store{api: api, folder: folder}
}

// Upload streams r into the store folder and returns the secure URL.
func (s *Store) Upload(ctx context.Context, r io.Reader) (string, error) {
	res, err := s.api.Upload(ctx, r, uploader.UploadParams{Folder: s.folder})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload failed: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload failed: %s", res.Error.Message)
	}
	if res.SecureURL == "" {
		return "", errors.New("cloudinary upload failed: no url returned")
	}
	return res.SecureURL, nil
}

func (s *Store) Delete(ctx context.Context, publicID string) error {
	res, err := s.api.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("cloudinary destroy failed: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy failed: %s", res.Error.Message)
	}
	return nil
}

func (s *Store) DeleteByURL(ctx context.Context, imageURL string) error {
	id, err := PublicID(imageURL, s.folder)
	if err != nil {
		return err
	}
	return s.Delete(ctx, id)
}

// PublicID derives the Cloudinary public id from a hosted URL: the last path segment without
// its extension, inside folder.
func PublicID(imageURL, folder string) (string, error) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return "", fmt.Errorf("parse image url: %w", err)
	}
	name := path.Base(u.Path)
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	if name == "" || name == "/" || name == "." {
		return "", fmt.Errorf("no public id in image url %q", imageURL)
	}
	if folder == "" {
		return name, nil
	}
	return folder + "/" + name, nil
}
