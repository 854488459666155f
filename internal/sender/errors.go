package sender

import (
	"errors"
	"fmt"
)

// ConfigurationError is a permanent failure tied to a configuration: a bad
// key, a key that does not match the source address, an unusable destination.
// Retrying the same config cannot succeed, so the scheduler deactivates it.
type ConfigurationError struct {
	ConfigID string
	Reason   string
	Err      error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error for %s: %s: %v", e.ConfigID, e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error for %s: %s", e.ConfigID, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// TransientError is a failure expected to clear on its own: RPC outage,
// expired blockhash, confirmation timeout. The scheduler leaves the config
// active and tries again next tick.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient error during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsTransientError reports whether err wraps a TransientError.
func IsTransientError(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
