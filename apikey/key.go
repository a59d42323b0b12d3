// Package apikey issues and stores the opaque identity tokens decisions are
// keyed by. Lookup is deliberately shallow: a key either exists or it does
// not, there is no further authentication.
package apikey

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Key is one issued api key.
type Key struct {
	ID        string    `json:"id"`
	APIKey    string    `json:"api_key"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Active    bool      `json:"is_active"`
}

// New issues a key for the given display name. The token is opaque:
// "api_key_" followed by a random uuid without separators.
func New(name string) *Key {
	return &Key{
		ID:        uuid.NewString(),
		APIKey:    "api_key_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Active:    true,
	}
}
