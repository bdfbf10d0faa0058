package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OIDCProvider holds the subset of an OpenID Connect discovery document the
// server needs. Any compliant issuer works; clinics typically point this at
// Keycloak or Auth0.
type OIDCProvider struct {
	Issuer                   string   `json:"issuer"`
	AuthorizationEndpoint    string   `json:"authorization_endpoint"`
	TokenEndpoint            string   `json:"token_endpoint"`
	UserinfoEndpoint         string   `json:"userinfo_endpoint"`
	JWKSURI                  string   `json:"jwks_uri"`
	ScopesSupported          []string `json:"scopes_supported"`
	ResponseTypesSupported   []string `json:"response_types_supported"`
	GrantTypesSupported      []string `json:"grant_types_supported"`
	SubjectTypesSupported    []string `json:"subject_types_supported"`
	IDTokenSigningAlgValues  []string `json:"id_token_signing_alg_values_supported"`
	TokenEndpointAuthMethods []string `json:"token_endpoint_auth_methods_supported"`
}

// NewOIDCProvider resolves the issuer's /.well-known/openid-configuration
// document. A document without a jwks_uri is refused since token validation
// cannot work without one.
func NewOIDCProvider(issuerURL string) (*OIDCProvider, error) {
	discoveryURL := strings.TrimRight(issuerURL, "/") + "/.well-known/openid-configuration"

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(discoveryURL)
	if err != nil {
		return nil, fmt.Errorf("fetch OIDC discovery document: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OIDC discovery endpoint returned %d", resp.StatusCode)
	}

	var provider OIDCProvider
	if err := json.NewDecoder(resp.Body).Decode(&provider); err != nil {
		return nil, fmt.Errorf("decode OIDC discovery document: %w", err)
	}
	if provider.JWKSURI == "" {
		return nil, fmt.Errorf("OIDC discovery document missing jwks_uri")
	}
	return &provider, nil
}

// JWKSKeyFunc returns a jwt.Keyfunc backed by the discovered JWKS endpoint,
// with the usual short-lived cache so key rotation is picked up without a
// restart.
func (p *OIDCProvider) JWKSKeyFunc() jwt.Keyfunc {
	return jwksKeyFunc(p.JWKSURI)
}

// SupportsScope reports whether the issuer advertises the scope.
func (p *OIDCProvider) SupportsScope(scope string) bool {
	for _, s := range p.ScopesSupported {
		if s == scope {
			return true
		}
	}
	return false
}
