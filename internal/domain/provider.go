package domain

import (
	"context"
	"io"
)

type Provider interface {
	GetType() ProviderType

	ValidateCredentials(ctx context.Context) (*Account, error)

	ListFolder(ctx context.Context, path string) ([]Entry, error)

	Upload(ctx context.Context, remotePath string, content io.Reader, size int64) (*Entry, error)

	Download(ctx context.Context, remotePath string) (*Entry, io.ReadCloser, error)
}
