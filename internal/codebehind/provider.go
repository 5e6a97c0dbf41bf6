package codebehind

import (
	cblerrors "github.com/standardbeagle/cbl/internal/errors"
	"github.com/standardbeagle/cbl/internal/types"
)

// Provider inspects a file and reports the fully-qualified name of the
// codebehind class it carries, if any. Implementations must be free of side
// effects: the chain consults them on every reconciliation.
type Provider interface {
	Resolve(f types.File) (string, bool)
}

// ProviderChain is an ordered list of providers consulted first to last.
// The first non-empty answer wins and later providers are not asked.
type ProviderChain struct {
	providers []Provider
}

// NewProviderChain creates an empty chain.
func NewProviderChain() *ProviderChain {
	return &ProviderChain{}
}

// Register appends p to the chain. Registering a nil provider is a
// configuration defect and is rejected immediately.
func (c *ProviderChain) Register(p Provider) error {
	if p == nil {
		return cblerrors.NewRegistrationError("provider", "nil provider")
	}
	c.providers = append(c.providers, p)
	return nil
}

// Unregister removes the first occurrence of p and reports whether it was
// registered.
func (c *ProviderChain) Unregister(p Provider) bool {
	for i, existing := range c.providers {
		if existing == p {
			c.providers = append(c.providers[:i], c.providers[i+1:]...)
			return true
		}
	}
	return false
}

// Resolve walks the chain in registration order.
func (c *ProviderChain) Resolve(f types.File) (string, bool) {
	for _, p := range c.providers {
		if name, ok := p.Resolve(f); ok && name != "" {
			return name, true
		}
	}
	return "", false
}

// Len returns the number of registered providers.
func (c *ProviderChain) Len() int {
	return len(c.providers)
}
