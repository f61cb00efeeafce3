package libgraph

import (
	"context"
	"fmt"
	"os"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/public"
)

// Authenticator acquires Graph access tokens through the device code
// flow. It is the alternative to the browser-driven sign-in for
// environments where an app registration is available.
type Authenticator struct {
	client public.Client
	scopes []string
}

// NewAuthenticator creates a device-code authenticator from the stored
// configuration. MSAL keeps its own account cache, so silent
// acquisition works across invocations within a process.
func NewAuthenticator(cfg *Config) (*Authenticator, error) {
	if cfg.ClientID == "" || cfg.TenantID == "" {
		return nil, fmt.Errorf("device code login requires client_id and tenant_id: run 'meetfetch config set' first")
	}

	client, err := public.New(cfg.ClientID,
		public.WithAuthority("https://login.microsoftonline.com/"+cfg.TenantID))
	if err != nil {
		return nil, fmt.Errorf("failed to create auth client: %w", err)
	}

	return &Authenticator{
		client: client,
		scopes: cfg.Scopes,
	}, nil
}

// AcquireToken returns an access token, trying a cached account first
// and falling back to an interactive device code prompt on stderr.
func (a *Authenticator) AcquireToken(ctx context.Context) (string, error) {
	accounts, err := a.client.Accounts(ctx)
	if err == nil && len(accounts) > 0 {
		result, err := a.client.AcquireTokenSilent(ctx, a.scopes,
			public.WithSilentAccount(accounts[0]))
		if err == nil {
			return result.AccessToken, nil
		}
	}

	code, err := a.client.AcquireTokenByDeviceCode(ctx, a.scopes)
	if err != nil {
		return "", fmt.Errorf("failed to start device code flow: %w", err)
	}

	// The prompt goes to stderr so stdout stays clean for the report.
	fmt.Fprintln(os.Stderr, code.Result.Message)

	result, err := code.AuthenticationResult(ctx)
	if err != nil {
		return "", fmt.Errorf("device code authentication failed: %w", err)
	}

	return result.AccessToken, nil
}
