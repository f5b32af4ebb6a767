package repository

import "errors"

var (
	// ErrBlobStorageDisabled indicates a blob URL arrived without Azure credentials
	ErrBlobStorageDisabled = errors.New("azure blob storage is not configured")
)
