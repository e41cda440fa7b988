package lastfm

import (
	"errors"
	"fmt"
)

// Common Last.fm error codes.
const (
	ErrCodeInvalidService       = 2
	ErrCodeInvalidMethod        = 3
	ErrCodeAuthenticationFailed = 4
	ErrCodeInvalidFormat        = 5
	ErrCodeInvalidParameters    = 6
	ErrCodeInvalidResourceSpec  = 7
	ErrCodeOperationFailed      = 8
	ErrCodeInvalidSessionKey    = 9
	ErrCodeInvalidAPIKey        = 10
	ErrCodeServiceOffline       = 11
	ErrCodeSubscribersOnly      = 12
	ErrCodeInvalidSignature     = 13
	ErrCodeUnauthorizedToken    = 14
	ErrCodeExpiredToken         = 15
	ErrCodeTempUnavailable      = 16
	ErrCodeRateLimitExceeded    = 29
)

var (
	// ErrNoSessionKey is returned when a method requires a session key
	// but none has been set.
	ErrNoSessionKey = errors.New("lastfm: session key required")

	// ErrInvalidSession is returned when auth.getSession succeeds but the
	// response is missing the session key or name.
	ErrInvalidSession = errors.New("lastfm: invalid session response")

	// ErrInvalidConfig is returned when client configuration is invalid.
	ErrInvalidConfig = errors.New("lastfm: invalid configuration")
)

// ProviderError is a method-level failure reported inside an API response.
type ProviderError struct {
	Method  string // API method that failed
	Code    int    // Last.fm error code
	Message string // Error message from Last.fm
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("lastfm: %s: error %d: %s", e.Method, e.Code, e.Message)
}

// Is matches another *ProviderError with the same code, so
// errors.Is(err, &ProviderError{Code: ErrCodeInvalidSessionKey}) works.
func (e *ProviderError) Is(target error) bool {
	t, ok := target.(*ProviderError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Temporary reports whether Last.fm flagged the failure as transient
// (11: Service Offline, 16: Service Temporarily Unavailable).
func (e *ProviderError) Temporary() bool {
	return e.Code == ErrCodeServiceOffline || e.Code == ErrCodeTempUnavailable
}

// AuthError is returned when Last.fm rejects a token or credentials during
// the authentication handshake.
type AuthError struct {
	Code    int
	Message string
}

func (e *AuthError) Error() string {
	if e.Code == 0 {
		return "lastfm: authentication failed: " + e.Message
	}
	return fmt.Sprintf("lastfm: authentication failed: error %d: %s", e.Code, e.Message)
}

// SignatureError means the request signature was rejected. It indicates a
// programming error rather than a transient failure.
type SignatureError struct {
	Method  string
	Message string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("lastfm: %s: invalid method signature: %s", e.Method, e.Message)
}

// TransportError wraps network, DNS, timeout and unexpected HTTP status
// failures. StatusCode is zero when no response was received.
type TransportError struct {
	Method     string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("lastfm: %s: http status %d: %v", e.Method, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("lastfm: %s: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTemporary reports whether err is a transport failure or a provider
// error Last.fm marks as temporary. The client never retries on its own;
// this is informational for callers.
func IsTemporary(err error) bool {
	var terr *TransportError
	if errors.As(err, &terr) {
		return terr.StatusCode == 0 || terr.StatusCode >= 500
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Temporary()
	}
	return false
}

// providerError builds the typed error for an error field in a response.
func providerError(method string, code int, message string) error {
	if code == ErrCodeInvalidSignature {
		return &SignatureError{Method: method, Message: message}
	}
	return &ProviderError{Method: method, Code: code, Message: message}
}

// asAuthError converts provider errors from auth.* methods into *AuthError.
// Signature and transport errors pass through unchanged.
func asAuthError(err error) error {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return &AuthError{Code: perr.Code, Message: perr.Message}
	}
	return err
}
