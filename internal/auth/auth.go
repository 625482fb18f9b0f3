package auth

import (
	"occupancy-status-backend/config"
)

// Class distinguishes read access from write access.
type Class int

const (
	Read Class = iota
	Write
)

// Policy decides whether a supplied passcode grants access for a class of
// request. An empty configured passcode leaves that class open.
type Policy struct {
	readPasscode  string
	writePasscode string
}

// NewPolicy creates a Policy from configuration.
func NewPolicy(cfg config.AuthConfig) *Policy {
	return &Policy{
		readPasscode:  cfg.ReadPasscode,
		writePasscode: cfg.WritePasscode,
	}
}

// IsAuthorized reports whether the supplied passcode grants the given class.
func (p *Policy) IsAuthorized(passcode string, class Class) bool {
	want := p.readPasscode
	if class == Write {
		want = p.writePasscode
	}
	return want == "" || passcode == want
}
