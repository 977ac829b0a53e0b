package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyInCart   = errors.New("product already in cart")
	ErrCatalogNotReady = errors.New("catalog not loaded yet")
	ErrUnknownIntent   = errors.New("unknown intent")
	ErrNetwork         = errors.New("catalog fetch failed")
	ErrStorage         = errors.New("storage failure")
)

// ConfigError reports required settings that are missing or invalid.
type ConfigError struct {
	Missing []string
	Reason  string
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing %s", strings.Join(e.Missing, ", "))
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	return b.String()
}
