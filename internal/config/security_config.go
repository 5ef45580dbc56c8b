package config

type SecurityConfig interface {
	GetCSRFHeaderName() string
	GetCSRFExemptPaths() []string
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetCSRFHeaderName() string {
	return "X-CSRF-Token"
}

// GetCSRFExemptPaths lists paths that never carry the CSRF header. Entries
// ending in "/" match as prefixes.
func (Security) GetCSRFExemptPaths() []string {
	return []string{
		"/token",
		"/login",
		"/auth/",
		"/security/csrf-token",
		"/usuarios/",
	}
}
