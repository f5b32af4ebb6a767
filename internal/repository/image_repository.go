package repository

import (
	"context"
	"image"

	apperrors "github.com/anime-shed/sem-inspector-go/internal/errors"
	"github.com/anime-shed/sem-inspector-go/internal/logger"
	"github.com/anime-shed/sem-inspector-go/internal/storage"
	"github.com/sirupsen/logrus"
)

// imageRepository routes blob URLs to Azure and everything else to HTTP
type imageRepository struct {
	fetcher   storage.ImageFetcher
	blobs     storage.BlobStorage
	validator URLValidator
}

// NewImageRepository creates an image repository. blobs may be nil, in which
// case blob URLs are rejected instead of fetched anonymously.
func NewImageRepository(fetcher storage.ImageFetcher, blobs storage.BlobStorage, validator URLValidator) ImageRepository {
	return &imageRepository{
		fetcher:   fetcher,
		blobs:     blobs,
		validator: validator,
	}
}

// FetchImage validates the URL and retrieves the image from its source
func (r *imageRepository) FetchImage(ctx context.Context, imageURL string) (image.Image, error) {
	if err := r.ValidateImageURL(imageURL); err != nil {
		return nil, err
	}

	source := "http"
	fetch := r.fetcher.FetchImage
	if storage.IsBlobURL(imageURL) {
		if r.blobs == nil {
			return nil, apperrors.NewValidationError("blob URL given but blob storage is disabled", ErrBlobStorageDisabled)
		}
		source = "azure_blob"
		fetch = r.blobs.GetImage
	}

	img, err := fetch(ctx, imageURL)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"source":     source,
			"url":        imageURL,
			"error_type": apperrors.TypeOf(err),
		}).Debug("Image fetch failed")
		return nil, err
	}
	return img, nil
}

// ValidateImageURL validates if the provided URL is acceptable
func (r *imageRepository) ValidateImageURL(imageURL string) error {
	if r.validator == nil {
		if imageURL == "" {
			return apperrors.NewValidationError("URL cannot be empty", nil)
		}
		return nil
	}
	return r.validator.ValidateImageURL(imageURL)
}
