// Package lastfm provides a client for the Last.fm API 2.0 JSON interface.
//
// # Overview
//
// The package covers the subset of the API a scrobbler needs: the desktop
// authentication handshake, now playing updates, scrobble submission, a
// user's recent tracks, and track/album info lookups used to resolve
// artwork. Every call is a form-encoded POST against a single endpoint and
// is never retried; callers decide what a failure means.
//
// # Quick Start
//
//	client, err := lastfm.NewClient(lastfm.Config{
//	    APIKey:    "your-api-key",
//	    APISecret: "your-api-secret",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Authentication
//
// Last.fm uses a token-based authentication flow:
//
//  1. Get a token with Auth().GetToken
//  2. Direct the user to Auth().AuthURL(token)
//  3. Exchange the token with Auth().GetSession
//  4. Store the session key and pass it to SetSessionKey on later runs
//
// # Signing
//
// Mutating and auth methods carry an api_sig parameter computed by Sign:
// the parameters are sorted by key, concatenated as key+value with no
// separators, the shared secret is appended, and the MD5 digest of the
// result is hex encoded. The format and callback parameters never take
// part in the signature.
//
// # Errors
//
// Failures are reported with typed errors:
//
//	var perr *lastfm.ProviderError
//	if errors.As(err, &perr) {
//	    log.Printf("provider rejected %s: %d %s", perr.Method, perr.Code, perr.Message)
//	}
//
// *AuthError is returned by the auth.* methods, *SignatureError when the
// provider rejects the signature, *TransportError for network and HTTP
// level failures, and ErrInvalidSession when a session response is missing
// required fields.
//
// For more information about the Last.fm API:
// https://www.last.fm/api/scrobbling
package lastfm
