package monitoring

import (
	"context"
	"time"

	"github.com/vopenia-io/meet/internal/core/ports"
)

// AddKeyStoreCheck verifies the lobby store answers pings.
func (h *HealthChecker) AddKeyStoreCheck(store ports.KeyStore, timeout time.Duration) {
	h.AddCheck("keystore", store.Ping, timeout)
}

// AddRepositoryCheck wires a repository backend check, typically
// RepositoryFactory.HealthCheck.
func (h *HealthChecker) AddRepositoryCheck(check func(ctx context.Context) error, timeout time.Duration) {
	h.AddCheck("repositories", check, timeout)
}
