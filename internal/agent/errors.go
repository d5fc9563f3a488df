package agent

import (
	"errors"
	"fmt"

	"github.com/nextlevelbuilder/autoreply/internal/channels/evolution"
	"github.com/nextlevelbuilder/autoreply/internal/providers"
)

// ConfigurationError aborts a run before any side effect (e.g. no persona).
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration: %s: %v", e.Reason, e.Err)
	}
	return "configuration: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ProviderError is a failed completion. No reply exists, so nothing is delivered or logged.
type ProviderError struct {
	Provider string
	Status   int // HTTP status when the provider answered, 0 otherwise
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider %s: HTTP %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func newProviderError(name string, err error) *ProviderError {
	pe := &ProviderError{Provider: name, Err: err}
	var httpErr *providers.HTTPError
	if errors.As(err, &httpErr) {
		pe.Status = httpErr.Status
	}
	return pe
}

// DeliveryError describes a delivery that did not go out. It never aborts a run;
// it only annotates the Result.
type DeliveryError struct {
	Status string
	Detail string
}

func (e *DeliveryError) Error() string {
	if e.Detail == "" {
		return "delivery " + e.Status
	}
	return fmt.Sprintf("delivery %s: %s", e.Status, e.Detail)
}

func deliveryError(o evolution.Outcome) *DeliveryError {
	if o.Sent() {
		return nil
	}
	return &DeliveryError{Status: o.Status, Detail: o.Detail}
}
