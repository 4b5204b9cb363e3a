package repository

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultPaginationLimit is the page size used when the caller gives none.
	DefaultPaginationLimit = 10
	maxPaginationLimit     = 100

	cursorSeparator = "|"
)

// ErrInvalidPaginationToken is returned when a page token cannot be decoded.
var ErrInvalidPaginationToken = errors.New("invalid page token")

// Paginator is a keyset cursor: the (created_at, id) of the last row of the previous page.
type Paginator struct {
	LastID        uuid.UUID
	LastCreatedAt time.Time
}

// Encode renders the cursor as a URL-safe token for query strings.
func (p Paginator) Encode() string {
	raw := p.LastCreatedAt.UTC().Format(time.RFC3339Nano) + cursorSeparator + p.LastID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodePageToken parses a token produced by Paginator.Encode.
// Every failure wraps ErrInvalidPaginationToken.
func DecodePageToken(token string) (*Paginator, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPaginationToken, err)
	}

	createdAtPart, idPart, ok := strings.Cut(string(raw), cursorSeparator)
	if !ok {
		return nil, fmt.Errorf("%w: missing separator", ErrInvalidPaginationToken)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, createdAtPart)
	if err != nil {
		return nil, fmt.Errorf("%w: created_at: %w", ErrInvalidPaginationToken, err)
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return nil, fmt.Errorf("%w: id: %w", ErrInvalidPaginationToken, err)
	}

	return &Paginator{LastID: id, LastCreatedAt: createdAt}, nil
}
