package dropbox

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/users"
	"golang.org/x/oauth2"
)

// Client is a thin wrapper over the Dropbox SDK. The SDK calls take no
// context, so cancellation is only observed between calls.
type Client struct {
	files files.Client
	users users.Client
}

// NewClient authenticates every SDK request through ts. httpClient carries
// the base transport, which the oauth2 client also uses for token refresh.
func NewClient(ctx context.Context, ts oauth2.TokenSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	authed := oauth2.NewClient(ctx, ts)

	config := dropbox.Config{
		LogLevel: dropbox.LogOff,
		Client:   authed,
	}

	return &Client{
		files: files.New(config),
		users: users.New(config),
	}
}

func (c *Client) GetCurrentAccount() (*users.FullAccount, error) {
	account, err := c.users.GetCurrentAccount()
	if err != nil {
		return nil, fmt.Errorf("failed to get current account: %w", err)
	}
	return account, nil
}

// ListFolder follows the cursor until the listing is complete.
func (c *Client) ListFolder(ctx context.Context, path string) ([]files.IsMetadata, error) {
	res, err := c.files.ListFolder(files.NewListFolderArg(path))
	if err != nil {
		return nil, fmt.Errorf("failed to list folder: %w", err)
	}

	entries := append([]files.IsMetadata(nil), res.Entries...)
	for res.HasMore {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err = c.files.ListFolderContinue(files.NewListFolderContinueArg(res.Cursor))
		if err != nil {
			return nil, fmt.Errorf("failed to continue folder listing: %w", err)
		}
		entries = append(entries, res.Entries...)
	}

	return entries, nil
}

func (c *Client) Upload(path string, content io.Reader) (*files.FileMetadata, error) {
	arg := files.NewUploadArg(path)
	arg.Mode = overwriteMode()

	res, err := c.files.Upload(arg, content)
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}
	return res, nil
}

func (c *Client) StartSession(content io.Reader) (string, error) {
	res, err := c.files.UploadSessionStart(files.NewUploadSessionStartArg(), content)
	if err != nil {
		return "", fmt.Errorf("failed to start upload session: %w", err)
	}
	return res.SessionId, nil
}

func (c *Client) AppendSession(sessionID string, offset uint64, content io.Reader) error {
	cursor := files.NewUploadSessionCursor(sessionID, offset)
	if err := c.files.UploadSessionAppendV2(files.NewUploadSessionAppendArg(cursor), content); err != nil {
		return fmt.Errorf("failed to append to upload session: %w", err)
	}
	return nil
}

func (c *Client) FinishSession(sessionID string, offset uint64, path string, content io.Reader) (*files.FileMetadata, error) {
	cursor := files.NewUploadSessionCursor(sessionID, offset)
	commit := files.NewCommitInfo(path)
	commit.Mode = overwriteMode()

	res, err := c.files.UploadSessionFinish(files.NewUploadSessionFinishArg(cursor, commit), content)
	if err != nil {
		return nil, fmt.Errorf("failed to finish upload session: %w", err)
	}
	return res, nil
}

func (c *Client) Download(path string) (*files.FileMetadata, io.ReadCloser, error) {
	meta, content, err := c.files.Download(files.NewDownloadArg(path))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to download file: %w", err)
	}
	return meta, content, nil
}

func overwriteMode() *files.WriteMode {
	return &files.WriteMode{Tagged: dropbox.Tagged{Tag: files.WriteModeOverwrite}}
}
