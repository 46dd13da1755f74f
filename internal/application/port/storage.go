package port

import (
	"context"
	"time"
)

// FileStorage defines object storage operations keyed by relative path
type FileStorage interface {
	// Save writes content at path, replacing any existing object
	Save(ctx context.Context, path string, content []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) bool
	Delete(ctx context.Context, path string) error
	GetFullPath(relativePath string) string
}

// URLSigner issues and verifies time-limited download links for stored objects
type URLSigner interface {
	SignedURL(path string, ttl time.Duration) (string, error)

	// Verify returns the object path a token grants access to
	Verify(token string) (string, error)
}
