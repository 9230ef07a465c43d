package service

import (
	"context"
	"fmt"
	"net/mail"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/haulops/internal/model"
	"github.com/nurpe/haulops/internal/policy"
)

// FileStore accepts uploaded bytes and returns the URL they are served from.
type FileStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Upload is a file received from a client.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// FileResult is a generated download.
type FileResult struct {
	FileName    string
	ContentType string
	Content     []byte
}

func authorize(p model.Principal, action policy.Action) error {
	if !policy.Allowed(p, action) {
		return ErrPermissionDenied
	}
	return nil
}

func requireText(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", invalidf("%s is required", field)
	}
	return value, nil
}

func validEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return "", invalidf("invalid email")
	}
	return email, nil
}

func nonNegative(field string, v *float64) error {
	if v != nil && *v < 0 {
		return invalidf("%s must not be negative", field)
	}
	return nil
}

// applyText overwrites dst when src is set.
func applyText(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sanitizeFileName(input string) string {
	result := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z':
			result = append(result, r)
		case r >= 'A' && r <= 'Z':
			result = append(result, r)
		case r >= '0' && r <= '9':
			result = append(result, r)
		case r == '-', r == '_', r == '.':
			result = append(result, r)
		default:
			result = append(result, '-')
		}
	}
	return strings.Trim(string(result), "-.")
}

// uploadKey builds a collision free storage key below prefix.
func uploadKey(prefix string, owner uuid.UUID, fileName string) string {
	name := sanitizeFileName(path.Base(fileName))
	if name == "" {
		name = "file"
	}
	return fmt.Sprintf("%s/%s/%s-%s", prefix, owner, uuid.NewString()[:8], name)
}

func period(from, to *time.Time) error {
	if from != nil && to != nil && !from.Before(*to) {
		return invalidf("from must be before to")
	}
	return nil
}
