// Package auth supplies the opaque host credential attached to every webhook
// request. Tokens are forwarded verbatim and never parsed or validated here.
package auth

import (
	"fmt"
	"strings"
)

// Identity is the display profile of the current user
type Identity struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// DevIdentity is substituted when no host is present outside production
var DevIdentity = Identity{
	ID:        "dev_user",
	FirstName: "Dev",
	LastName:  "User",
	Username:  "devuser",
}

// DevToken is the placeholder credential sent in development
const DevToken = "dev-placeholder-token"

// Provider kinds
const (
	KindHost    = "host"
	KindDev     = "development"
	KindMissing = "missing"
)

// AuthMissingError is returned when a network operation needs a credential
// and the host supplied none.
type AuthMissingError struct {
	Reason string
}

func (e *AuthMissingError) Error() string {
	if e.Reason == "" {
		return "auth token missing"
	}
	return "auth token missing: " + e.Reason
}

// TokenProvider supplies the credential for webhook calls
type TokenProvider interface {
	// Token returns the credential or an *AuthMissingError
	Token() (string, error)
	// Identity returns the display profile of the current user
	Identity() Identity
	// Kind names the provider variant for logging
	Kind() string
}

// HostContext is what the embedding host hands over at startup
type HostContext struct {
	InitData string
	User     *Identity
}

// Capabilities are the host features resolved at startup
type Capabilities struct {
	InitData string
	User     Identity
}

// Negotiation is the result of probing the host once: either Available with
// its capabilities, or Unavailable.
type Negotiation struct {
	available bool
	caps      Capabilities
}

// Available reports whether a host credential was found
func (n Negotiation) Available() bool {
	return n.available
}

// Capabilities returns the resolved host capabilities. The zero value is
// returned when the host is unavailable.
func (n Negotiation) Capabilities() Capabilities {
	return n.caps
}

// Negotiate resolves host capabilities. A host without init data counts as unavailable.
func Negotiate(host HostContext) Negotiation {
	initData := strings.TrimSpace(host.InitData)
	if initData == "" {
		return Negotiation{}
	}

	caps := Capabilities{InitData: host.InitData}
	if host.User != nil {
		caps.User = *host.User
	}
	return Negotiation{available: true, caps: caps}
}

// NewProvider picks the provider variant once. Without a host, production
// gets a provider that fails every Token call and development gets the
// placeholder identity.
func NewProvider(n Negotiation, production bool) TokenProvider {
	switch {
	case n.Available():
		return &HostProvider{caps: n.Capabilities()}
	case production:
		return &MissingProvider{}
	default:
		return &DevProvider{}
	}
}

// HostProvider forwards the host-issued credential
type HostProvider struct {
	caps Capabilities
}

// NewHostProvider wraps an init data string issued by the host
func NewHostProvider(initData string, user Identity) *HostProvider {
	return &HostProvider{caps: Capabilities{InitData: initData, User: user}}
}

// Token implements TokenProvider
func (p *HostProvider) Token() (string, error) {
	return p.caps.InitData, nil
}

// Identity implements TokenProvider
func (p *HostProvider) Identity() Identity {
	return p.caps.User
}

// Kind implements TokenProvider
func (p *HostProvider) Kind() string {
	return KindHost
}

// DevProvider returns a fixed placeholder identity and token
type DevProvider struct{}

// Token implements TokenProvider
func (p *DevProvider) Token() (string, error) {
	return DevToken, nil
}

// Identity implements TokenProvider
func (p *DevProvider) Identity() Identity {
	return DevIdentity
}

// Kind implements TokenProvider
func (p *DevProvider) Kind() string {
	return KindDev
}

// MissingProvider fails closed
type MissingProvider struct{}

// Token implements TokenProvider
func (p *MissingProvider) Token() (string, error) {
	return "", &AuthMissingError{Reason: "no host init data in production"}
}

// Identity implements TokenProvider
func (p *MissingProvider) Identity() Identity {
	return Identity{}
}

// Kind implements TokenProvider
func (p *MissingProvider) Kind() string {
	return KindMissing
}

// DisplayName returns the best human label for id
func (id Identity) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(id.FirstName) + " " + strings.TrimSpace(id.LastName))
	switch {
	case name != "":
		return name
	case id.Username != "":
		return "@" + id.Username
	case id.ID != "":
		return fmt.Sprintf("user %s", id.ID)
	default:
		return "anonymous"
	}
}
