package common

import (
	"errors"
	"regexp"
	"strings"

	"github.com/johanforsgren/dbxutil/internal/domain"
	"golang.org/x/oauth2"
)

var (
	ErrEmptyPath       = errors.New("path cannot be empty")
	ErrUnexpectedEntry = errors.New("unexpected metadata type")
)

// Dropbox API errors stringify as their error_summary, e.g. "path/not_found/..".
var errorSummaryPattern = regexp.MustCompile(`^[a-z_]+(/[a-z_]+)*/?\.*$`)

// ExtractErrorMessage shortens provider and OAuth errors for the status bar.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.ErrorDescription != "" {
			return retrieveErr.ErrorDescription
		}
		if retrieveErr.ErrorCode != "" {
			return retrieveErr.ErrorCode
		}
	}

	message := strings.TrimSpace(err.Error())

	// Wrapped errors carry the summary after the last ": ".
	tail := message
	if idx := strings.LastIndex(message, ": "); idx >= 0 {
		tail = message[idx+2:]
	}

	if errorSummaryPattern.MatchString(tail) {
		humanized := humanizeSummary(tail)
		if tail == message {
			return humanized
		}
		return message[:len(message)-len(tail)] + humanized
	}

	return message
}

func humanizeSummary(summary string) string {
	var parts []string
	for _, part := range strings.Split(strings.TrimRight(summary, "."), "/") {
		if part == "" {
			continue
		}
		parts = append(parts, strings.ReplaceAll(part, "_", " "))
	}
	return strings.Join(parts, ": ")
}

var authErrorSummaries = []string{
	"invalid_access_token",
	"expired_access_token",
	"missing_scope",
	"user_suspended",
}

// IsAuthError reports whether err means the session can no longer be used
// and the user has to authenticate again.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrNotAuthenticated) {
		return true
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return true
	}

	message := err.Error()
	for _, summary := range authErrorSummaries {
		if strings.Contains(message, summary) {
			return true
		}
	}
	return false
}
