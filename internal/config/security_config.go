package config

const (
	oidcIssuerEnvVar       = "OIDC_ISSUER_URL"
	oidcClientIDEnvVar     = "OIDC_CLIENT_ID"
	oidcClientSecretEnvVar = "OIDC_CLIENT_SECRET"
	oidcRedirectURLEnvVar  = "OIDC_REDIRECT_URL"
)

type SecurityConfig interface {
	GetOidcIssuerURL() string
	GetOidcClientID() string
	GetOidcClientSecret() string
	GetOidcRedirectURL() string
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetOidcIssuerURL() string {
	return GetEnv(oidcIssuerEnvVar, "")
}

func (Security) GetOidcClientID() string {
	return GetEnv(oidcClientIDEnvVar, "")
}

func (Security) GetOidcClientSecret() string {
	return GetEnv(oidcClientSecretEnvVar, "")
}

func (Security) GetOidcRedirectURL() string {
	return GetEnv(oidcRedirectURLEnvVar, "")
}
