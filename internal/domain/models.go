package domain

import (
	"errors"
	"time"
)

type ProviderType string

const (
	ProviderDropbox ProviderType = "dropbox"
)

var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrMissingCredentials = errors.New("app key and app secret are required")
	ErrMissingCode        = errors.New("authorization code is required")
	ErrNoSelection        = errors.New("no file selected")
)

type Account struct {
	ID          string
	DisplayName string
	Email       string
}

type Entry struct {
	ID          string
	Name        string
	Path        string
	IsDir       bool
	Size        uint64
	Modified    time.Time
	Rev         string
	ContentHash string
}

type TransferDirection string

const (
	TransferUpload   TransferDirection = "upload"
	TransferDownload TransferDirection = "download"
)

type TransferResult struct {
	ID         string
	Direction  TransferDirection
	LocalPath  string
	RemotePath string
	Bytes      int64
	Duration   time.Duration
	Entry      *Entry
}
