package social

import (
	"strings"
)

// Provider names a third party identity provider
type Provider string

const (
	ProviderGitHub   Provider = "github"
	ProviderTwitter  Provider = "twitter"
	ProviderFacebook Provider = "facebook"
	ProviderGoogle   Provider = "google-oauth2"
)

var supportedProviders = []Provider{
	ProviderGitHub,
	ProviderTwitter,
	ProviderFacebook,
	ProviderGoogle,
}

// Providers lists every supported provider
func Providers() []Provider {
	out := make([]Provider, len(supportedProviders))
	copy(out, supportedProviders)
	return out
}

// IsValid reports whether p is a supported provider
func (p Provider) IsValid() bool {
	for _, candidate := range supportedProviders {
		if p == candidate {
			return true
		}
	}
	return false
}

func (p Provider) String() string {
	return string(p)
}

// ParseProvider resolves name into a supported Provider. Matching ignores
// case and surrounding whitespace.
func ParseProvider(name string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	if !p.IsValid() {
		return "", ErrUnsupportedProvider
	}
	return p, nil
}
