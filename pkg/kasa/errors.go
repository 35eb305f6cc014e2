package kasa

import (
	"fmt"

	"github.com/pkg/errors"
)

// Caller input and lookup failures. These are raised before any request is
// sent to the cloud.
var (
	ErrMissingCredential    = errors.New("kasa: missing credential")
	ErrMissingParameter     = errors.New("kasa: missing required parameter")
	ErrInvalidParameterType = errors.New("kasa: invalid parameter type")
	ErrUnknownAlias         = errors.New("kasa: alias not found in device list")
	ErrMalformedResponse    = errors.New("kasa: malformed cloud response")
)

// CloudError is a failure reported by the cloud through the error_code field
// of an otherwise successful HTTP exchange.
type CloudError struct {
	Method  string
	Code    int
	Message string
}

func (e *CloudError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("kasa: cloud error %d calling %s: %s", e.Code, e.Method, e.Message)
	}
	return fmt.Sprintf("kasa: cloud error %d calling %s", e.Code, e.Method)
}

// AuthError is a CloudError raised by login. errors.As with a *CloudError
// target matches it as well.
type AuthError struct {
	*CloudError
}

func (e *AuthError) Error() string {
	return "kasa: login rejected: " + e.CloudError.Error()
}

func (e *AuthError) Unwrap() error {
	return e.CloudError
}

// DeviceError is a failure reported by the physical device inside a relayed
// reply, eg. {"system":{"set_relay_state":{"err_code":-2,"err_msg":"..."}}}.
type DeviceError struct {
	Module  string
	Method  string
	Code    int
	Message string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("kasa: device error %d from %s.%s: %s", e.Code, e.Module, e.Method, e.Message)
}

// IsCloudError reports whether err carries a cloud error code, and returns it.
func IsCloudError(err error) (int, bool) {
	var cloudErr *CloudError
	if errors.As(err, &cloudErr) {
		return cloudErr.Code, true
	}
	return 0, false
}

// IsAuthError reports whether err is a rejected login.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
