// Package cloudinary hosts mail attachments so channel messages can
// link them.
package cloudinary

import (
	"context"
	"fmt"

	"vagasbot/internal/fetch"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type Uploader struct {
	cld *cloudinary.Cloudinary
}

// NewUploader builds an uploader from a CLOUDINARY_URL style DSN.
func NewUploader(cloudinaryURL string) (*Uploader, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return &Uploader{cld: cld}, nil
}

func (u *Uploader) Upload(ctx context.Context, path string) (fetch.UploadedFile, error) {
	if u == nil || u.cld == nil {
		return fetch.UploadedFile{}, fmt.Errorf("nil uploader")
	}
	resp, err := u.cld.Upload.Upload(ctx, path, uploader.UploadParams{})
	if err != nil {
		return fetch.UploadedFile{}, err
	}
	return fetch.UploadedFile{
		URL:    resp.SecureURL,
		Width:  resp.Width,
		Height: resp.Height,
	}, nil
}
