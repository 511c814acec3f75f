package quota

import (
	"fmt"
	"sync"
)

// Registry manages ledgers for deployments serving more than one shared
// credential, each with its own daily pool.
type Registry interface {
	Get(credential string) (Ledger, error)
	Set(credential string, ledger Ledger)
}

type ledgerMapRegistry struct {
	registry map[string]Ledger
	mu       sync.RWMutex
}

// NewRegistry creates a new in-memory ledger registry.
func NewRegistry() Registry {
	return &ledgerMapRegistry{
		registry: make(map[string]Ledger),
	}
}

func (r *ledgerMapRegistry) Get(credential string) (Ledger, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ledger, exists := r.registry[credential]
	if !exists {
		return nil, fmt.Errorf("ledger not found for credential: %s", credential)
	}
	return ledger, nil
}

func (r *ledgerMapRegistry) Set(credential string, ledger Ledger) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.registry[credential] = ledger
}
