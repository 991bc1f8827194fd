package interfaces

import (
	"context"
	"errors"
	"time"
)

// Credential names held in the catalog's key store. Files under
// storage.keys_dir seed them; environment variables take precedence.
const (
	KeyEODHD     = "eodhd_api_key"
	KeyGemini    = "gemini_api_key"
	KeyAnthropic = "anthropic_api_key"
	KeyNotion    = "notion_token"
)

var ErrKeyNotFound = errors.New("key not found")

// KeyValuePair is one stored credential or setting
type KeyValuePair struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description"` // e.g. "Loaded from market.toml"
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// KeyValueStorage keeps API credentials next to the report catalog so the
// scheduler and MCP server need no environment. Keys are lowercased on
// write and lookup; Get returns ErrKeyNotFound for an unknown key.
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	// Set overwrites the value and keeps the original CreatedAt
	Set(ctx context.Context, key string, value string, description string) error
	Delete(ctx context.Context, key string) error
	// List returns all pairs ordered by key
	List(ctx context.Context) ([]KeyValuePair, error)
}
