// Package inmem provides in-memory implementations of the trading
// repositories, used by tests and by deployments without an external
// store.
package inmem

import (
	"fmt"
	"sync"

	"github.com/coinvex/trading"
)

// CredentialRepository keeps decrypted exchange credentials in memory.
// Production deployments back this port with the encrypted credential
// store instead.
type CredentialRepository struct {
	credentialsMutex sync.RWMutex
	credentials      map[string]*trading.Credentials
}

func NewCredentialRepository() *CredentialRepository {
	return &CredentialRepository{
		credentials: make(map[string]*trading.Credentials),
	}
}

func (cr *CredentialRepository) SaveCredentials(
	credentials *trading.Credentials,
) {
	cr.credentialsMutex.Lock()
	defer cr.credentialsMutex.Unlock()

	cr.credentials[credentials.ID.String()] = credentials
}

func (cr *CredentialRepository) Credentials(
	id trading.ID,
) (*trading.Credentials, error) {
	cr.credentialsMutex.RLock()
	defer cr.credentialsMutex.RUnlock()

	credentials, exists := cr.credentials[id.String()]
	if !exists {
		return nil, fmt.Errorf("unknown credentials: [%v]", id)
	}

	return credentials, nil
}
