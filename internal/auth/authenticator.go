package auth

import (
	"context"

	"github.com/tripperhq/tripper/internal/models"
)

// Authenticator is the credential scheme behind the auth service. Password
// is the only implementation today; the interface keeps OAuth or passkeys
// possible without touching the service layer.
type Authenticator interface {
	// Register creates an account from an email, display name, and
	// credential. The credential format is implementation-defined.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate verifies the credential and returns the account.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks the credential against the scheme's
	// requirements before any storage work happens.
	ValidateCredential(credential string) error
}
