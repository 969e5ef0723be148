package dropbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/users"
	"github.com/johanforsgren/dbxutil/internal/domain"
	"github.com/johanforsgren/dbxutil/internal/logger"
	"github.com/johanforsgren/dbxutil/internal/provider/common"
)

const (
	// Single-request uploads are capped at 150 MiB by the API.
	DefaultUploadThreshold int64 = 150 << 20
	DefaultChunkSize       int64 = 8 << 20
)

type Option func(*Provider)

func WithChunkSize(size int64) Option {
	return func(p *Provider) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

func WithUploadThreshold(threshold int64) Option {
	return func(p *Provider) {
		if threshold > 0 {
			p.uploadThreshold = threshold
		}
	}
}

type Provider struct {
	client          *Client
	chunkSize       int64
	uploadThreshold int64
}

var _ domain.Provider = (*Provider)(nil)

func NewProvider(client *Client, opts ...Option) *Provider {
	p := &Provider{
		client:          client,
		chunkSize:       DefaultChunkSize,
		uploadThreshold: DefaultUploadThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.chunkSize > p.uploadThreshold {
		p.chunkSize = p.uploadThreshold
	}
	return p
}

func (p *Provider) GetType() domain.ProviderType {
	return domain.ProviderDropbox
}

func (p *Provider) ValidateCredentials(ctx context.Context) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Log("Dropbox: Fetching current account")
	account, err := p.client.GetCurrentAccount()
	if err != nil {
		logger.LogError("DROPBOX_ACCOUNT", "current", err)
		return nil, err
	}

	converted := convertAccount(account)
	logger.Log("Dropbox: Authenticated as %s", converted.DisplayName)
	return converted, nil
}

func (p *Provider) ListFolder(ctx context.Context, folder string) ([]domain.Entry, error) {
	folder = NormalizePath(folder)
	logger.Log("Dropbox: Listing folder %q", folder)

	items, err := p.client.ListFolder(ctx, folder)
	if err != nil {
		logger.LogError("DROPBOX_LIST", folder, err)
		return nil, err
	}

	entries := make([]domain.Entry, 0, len(items))
	for _, item := range items {
		entry, ok := convertMetadata(item)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}

	logger.Log("Dropbox: Found %d entries in %q", len(entries), folder)
	return entries, nil
}

func (p *Provider) Upload(ctx context.Context, remotePath string, content io.Reader, size int64) (*domain.Entry, error) {
	remotePath = NormalizePath(remotePath)
	if remotePath == "" {
		return nil, common.ErrEmptyPath
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		meta *files.FileMetadata
		err  error
	)
	if size > p.uploadThreshold {
		logger.Log("Dropbox: Uploading %s in chunks of %d bytes (%d bytes total)", remotePath, p.chunkSize, size)
		meta, err = p.uploadSession(ctx, remotePath, content, size)
	} else {
		logger.Log("Dropbox: Uploading %s (%d bytes)", remotePath, size)
		meta, err = p.client.Upload(remotePath, content)
	}
	if err != nil {
		logger.LogError("DROPBOX_UPLOAD", remotePath, err)
		return nil, err
	}

	entry := convertFile(meta)
	logger.Log("Dropbox: Uploaded %s (rev %s)", entry.Path, entry.Rev)
	return &entry, nil
}

func (p *Provider) uploadSession(ctx context.Context, remotePath string, content io.Reader, size int64) (*files.FileMetadata, error) {
	buf := make([]byte, p.chunkSize)

	readChunk := func(remaining int64) ([]byte, error) {
		n := p.chunkSize
		if remaining < n {
			n = remaining
		}
		if _, err := io.ReadFull(content, buf[:n]); err != nil {
			return nil, fmt.Errorf("failed to read upload content: %w", err)
		}
		return buf[:n], nil
	}

	chunk, err := readChunk(size)
	if err != nil {
		return nil, err
	}
	sessionID, err := p.client.StartSession(bytes.NewReader(chunk))
	if err != nil {
		return nil, err
	}
	offset := uint64(len(chunk))

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		remaining := size - int64(offset)
		if remaining <= p.chunkSize {
			chunk, err = readChunk(remaining)
			if err != nil {
				return nil, err
			}
			return p.client.FinishSession(sessionID, offset, remotePath, bytes.NewReader(chunk))
		}

		chunk, err = readChunk(remaining)
		if err != nil {
			return nil, err
		}
		if err := p.client.AppendSession(sessionID, offset, bytes.NewReader(chunk)); err != nil {
			return nil, err
		}
		offset += uint64(len(chunk))
	}
}

func (p *Provider) Download(ctx context.Context, remotePath string) (*domain.Entry, io.ReadCloser, error) {
	remotePath = NormalizePath(remotePath)
	if remotePath == "" {
		return nil, nil, common.ErrEmptyPath
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	logger.Log("Dropbox: Downloading %s", remotePath)
	meta, content, err := p.client.Download(remotePath)
	if err != nil {
		logger.LogError("DROPBOX_DOWNLOAD", remotePath, err)
		return nil, nil, err
	}

	entry := convertFile(meta)
	return &entry, content, nil
}

// NormalizePath converts a user path to API form: leading slash, no trailing
// slash, and "" for the root.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return ""
	}
	cleaned := path.Clean("/" + p)
	if cleaned == "/" {
		return ""
	}
	return cleaned
}

func convertMetadata(item files.IsMetadata) (domain.Entry, bool) {
	switch meta := item.(type) {
	case *files.FileMetadata:
		return convertFile(meta), true
	case *files.FolderMetadata:
		return domain.Entry{
			ID:    meta.Id,
			Name:  meta.Name,
			Path:  meta.PathDisplay,
			IsDir: true,
		}, true
	default:
		logger.LogError("DROPBOX_CONVERT", fmt.Sprintf("%T", item), common.ErrUnexpectedEntry)
		return domain.Entry{}, false
	}
}

func convertFile(meta *files.FileMetadata) domain.Entry {
	if meta == nil {
		return domain.Entry{}
	}
	return domain.Entry{
		ID:          meta.Id,
		Name:        meta.Name,
		Path:        meta.PathDisplay,
		Size:        meta.Size,
		Modified:    meta.ServerModified,
		Rev:         meta.Rev,
		ContentHash: meta.ContentHash,
	}
}

func convertAccount(account *users.FullAccount) *domain.Account {
	converted := &domain.Account{
		ID:    account.AccountId,
		Email: account.Email,
	}
	if account.Name != nil {
		converted.DisplayName = account.Name.DisplayName
	}
	if converted.DisplayName == "" {
		converted.DisplayName = account.Email
	}
	return converted
}
