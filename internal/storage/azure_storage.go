package storage

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	apperrors "github.com/anime-shed/sem-inspector-go/internal/errors"
)

// blobHostSuffix identifies Azure Blob Storage endpoints
const blobHostSuffix = ".blob.core.windows.net"

type BlobStorage interface {
	GetImage(ctx context.Context, blobURL string) (image.Image, error)
}

type azureStorage struct {
	accountName string
	client      *azblob.Client
}

func NewAzureStorage(accountName string, accountKey string) (BlobStorage, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s%s", accountName, blobHostSuffix),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}

	return &azureStorage{accountName: accountName, client: client}, nil
}

// IsBlobURL reports whether rawURL points at Azure Blob Storage
func IsBlobURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Hostname()), blobHostSuffix)
}

// ParseBlobURL splits https://<account>.blob.core.windows.net/<container>/<blob>
func ParseBlobURL(rawURL string) (account, container, blob string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", "", apperrors.NewValidationError("invalid blob URL", err)
	}
	host := strings.ToLower(u.Hostname())
	account, ok := strings.CutSuffix(host, blobHostSuffix)
	if !ok || account == "" {
		return "", "", "", apperrors.NewValidationError("not an Azure blob URL", nil)
	}
	container, blob, _ = strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if container == "" || blob == "" {
		return "", "", "", apperrors.NewValidationError("blob URL must name a container and a blob", nil)
	}
	return account, container, blob, nil
}

func (s *azureStorage) GetImage(ctx context.Context, blobURL string) (image.Image, error) {
	account, containerName, blobName, err := ParseBlobURL(blobURL)
	if err != nil {
		return nil, err
	}
	if account != strings.ToLower(s.accountName) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("blob account %q does not match configured account", account), nil)
	}

	// Download blob to stream
	downloadResponse, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, apperrors.NewNotFoundError("blob not found", err)
		}
		return nil, apperrors.NewNetworkError("blob download failed", err)
	}

	retryReader := downloadResponse.Body
	defer retryReader.Close()

	img, _, err := DecodeImage(retryReader)
	return img, err
}
