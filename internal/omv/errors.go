package omv

import (
	"errors"
	"fmt"
)

// Failure kind labels used for logging and metrics.
const (
	KindAuth    = "auth"
	KindNetwork = "network"
	KindParse   = "parse"
	KindOther   = "other"
)

// AuthError reports rejected credentials or an expired session. The OMV
// server signals an expired session with RPC error codes 5000 (not
// authenticated) and 5001 (session expired); a login rejection carries
// whatever code the session service returns.
type AuthError struct {
	Code    int
	Message string
}

func (e *AuthError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("omv: authentication failed (code %d): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("omv: authentication failed: %s", e.Message)
}

// NetworkError reports a transport-level failure: unreachable host,
// timeout, TLS failure, or a non-2xx HTTP status.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("omv: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError reports a response body that could not be decoded or that
// lacks the expected fields.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("omv: %s: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsAuthError reports whether err is (or wraps) an *AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsNetworkError reports whether err is (or wraps) a *NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsParseError reports whether err is (or wraps) a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// FailureKind classifies err into one of the Kind* labels.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsAuthError(err):
		return KindAuth
	case IsNetworkError(err):
		return KindNetwork
	case IsParseError(err):
		return KindParse
	default:
		return KindOther
	}
}
