package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/johanforsgren/dbxutil/internal/domain"
	"github.com/johanforsgren/dbxutil/internal/logger"
	"github.com/mitchellh/go-homedir"
)

// RemotePathFor joins the remote folder with the local file's base name.
func RemotePathFor(remoteDir, localPath string) string {
	return path.Join("/", remoteDir, filepath.Base(localPath))
}

// ExpandPath resolves a leading ~ and makes the path absolute.
func ExpandPath(p string) (string, error) {
	expanded, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf("failed to expand %s: %w", p, err)
	}
	return filepath.Abs(expanded)
}

// Upload sends localPath to remoteDir, overwriting a file of the same name.
func Upload(ctx context.Context, provider domain.Provider, localPath, remoteDir string, progress *Progress) (*domain.TransferResult, error) {
	if provider == nil {
		return nil, domain.ErrNotAuthenticated
	}

	localPath, err := ExpandPath(localPath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(localPath)
	if err != nil {
		logger.LogError("UPLOAD_STAT", localPath, err)
		return nil, fmt.Errorf("failed to read %s: %w", localPath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", localPath)
	}

	logger.LogFileOpen(localPath)
	file, err := os.Open(localPath)
	if err != nil {
		logger.LogError("UPLOAD_OPEN", localPath, err)
		return nil, fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer file.Close()

	id := uuid.New().String()
	remotePath := RemotePathFor(remoteDir, localPath)
	if progress == nil {
		progress = NewProgress(info.Size())
	}

	start := time.Now()
	entry, err := provider.Upload(ctx, remotePath, &countingReader{ctx: ctx, r: file, progress: progress}, info.Size())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		logger.LogError("UPLOAD", remotePath, err)
		return nil, fmt.Errorf("failed to upload %s: %w", filepath.Base(localPath), err)
	}
	elapsed := time.Since(start)

	logger.LogTransfer(id, string(domain.TransferUpload), localPath, remotePath, info.Size(), elapsed)
	return &domain.TransferResult{
		ID:         id,
		Direction:  domain.TransferUpload,
		LocalPath:  localPath,
		RemotePath: remotePath,
		Bytes:      info.Size(),
		Duration:   elapsed,
		Entry:      entry,
	}, nil
}

// Download saves remotePath to localPath. The content goes to a temporary
// file next to the destination and replaces it only once complete.
func Download(ctx context.Context, provider domain.Provider, remotePath, localPath string, progress *Progress) (*domain.TransferResult, error) {
	if provider == nil {
		return nil, domain.ErrNotAuthenticated
	}

	localPath, err := ExpandPath(localPath)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	start := time.Now()

	entry, content, err := provider.Download(ctx, remotePath)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", remotePath, err)
	}
	defer content.Close()
	// Closing the body unblocks a Read waiting on the network.
	stop := context.AfterFunc(ctx, func() { _ = content.Close() })
	defer stop()

	if progress == nil {
		progress = NewProgress(int64(entry.Size))
	}

	dir := filepath.Dir(localPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.LogError("DOWNLOAD_MKDIR", dir, err)
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, ".dbxutil-*.part")
	if err != nil {
		logger.LogError("DOWNLOAD_CREATE", dir, err)
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempName := tempFile.Name()
	defer func() { _ = os.Remove(tempName) }()
	defer func() { _ = tempFile.Close() }()

	written, err := io.Copy(&countingWriter{ctx: ctx, w: tempFile, progress: progress}, content)
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	if err != nil {
		logger.LogError("DOWNLOAD_WRITE", localPath, err)
		return nil, fmt.Errorf("failed to write %s: %w", localPath, err)
	}
	if err := tempFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", localPath, err)
	}

	logger.LogFileWrite(localPath)
	if err := os.Rename(tempName, localPath); err != nil {
		logger.LogError("DOWNLOAD_RENAME", localPath, err)
		return nil, fmt.Errorf("failed to save %s: %w", localPath, err)
	}
	elapsed := time.Since(start)

	logger.LogTransfer(id, string(domain.TransferDownload), remotePath, localPath, written, elapsed)
	return &domain.TransferResult{
		ID:         id,
		Direction:  domain.TransferDownload,
		LocalPath:  localPath,
		RemotePath: remotePath,
		Bytes:      written,
		Duration:   elapsed,
		Entry:      entry,
	}, nil
}
