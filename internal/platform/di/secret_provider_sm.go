// internal/platform/di/secret_provider_sm.go
package di

import (
	"context"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/pkg/errors"
)

// storefrontTokenSM resolves the storefront access token from Secret
// Manager so the token never rides in plain env on deployed revisions.
type storefrontTokenSM struct {
	sm *secretmanager.Client
}

// Fetch reads one secret version. name is the full resource name; a bare
// "projects/p/secrets/s" gets "/versions/latest" appended.
func (p *storefrontTokenSM) Fetch(ctx context.Context, name string) (string, error) {
	if p == nil || p.sm == nil {
		return "", errors.New("di: secret manager client not configured")
	}
	n := strings.TrimSpace(name)
	if n == "" {
		return "", errors.New("di: secret name is empty")
	}
	if !strings.Contains(n, "/versions/") {
		n += "/versions/latest"
	}

	resp, err := p.sm.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: n})
	if err != nil {
		return "", errors.Wrapf(err, "di: AccessSecretVersion failed (%s)", n)
	}
	if resp == nil || resp.Payload == nil {
		return "", errors.Errorf("di: empty secret payload (%s)", n)
	}
	return strings.TrimSpace(string(resp.Payload.Data)), nil
}
