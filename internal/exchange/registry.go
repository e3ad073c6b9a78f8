package exchange

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lulabot/lula/internal/observ"
)

// Credentials are the API keys for one account session.
type Credentials struct {
	APIKey string
	Secret string
}

// Constructor builds a client for one exchange identifier.
type Constructor func(creds Credentials) (Client, error)

var (
	registryMu sync.Mutex
	registry   = map[string]Constructor{
		"mock": func(Credentials) (Client, error) { return NewMockClient(), nil },
	}
)

// Register adds a constructor for an exchange identifier. Vendor SDK
// bindings register themselves here; the core never looks up exchange
// classes dynamically.
func Register(id string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(id)] = ctor
}

// New builds a client for a supported identifier. Unsupported identifiers
// fail fast with the list of known exchanges rather than surfacing a
// lookup failure deep inside a cycle.
func New(id string, creds Credentials) (Client, error) {
	registryMu.Lock()
	ctor, ok := registry[strings.ToLower(strings.TrimSpace(id))]
	registryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unsupported exchange %q (supported: %s)", id, strings.Join(Supported(), ", "))
	}
	c, err := ctor(creds)
	if err != nil {
		return nil, fmt.Errorf("create exchange %q: %w", id, err)
	}
	observ.Log("exchange_client_created", map[string]any{"exchange": c.ID()})
	return c, nil
}

// Supported lists registered exchange identifiers in stable order.
func Supported() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
