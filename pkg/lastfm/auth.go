package lastfm

import (
	"context"
	"fmt"
	"net/url"
)

// AuthService handles the desktop authentication handshake:
//
//  1. GetToken to obtain a request token
//  2. send the user to AuthURL(token) to approve it
//  3. GetSession to exchange the approved token for a session key
type AuthService struct {
	client *Client
}

type tokenResponse struct {
	Token string `json:"token"`
}

type sessionResponse struct {
	Session struct {
		Name       string   `json:"name"`
		Key        string   `json:"key"`
		Subscriber flexBool `json:"subscriber"`
	} `json:"session"`
}

// GetToken fetches an unauthorized request token (auth.getToken).
func (s *AuthService) GetToken(ctx context.Context) (string, error) {
	const method = "auth.getToken"

	body, err := s.client.call(ctx, method, nil, signed)
	if err != nil {
		return "", asAuthError(err)
	}

	var resp tokenResponse
	if err := decode(method, body, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", &AuthError{Message: "missing token in auth.getToken response"}
	}
	return resp.Token, nil
}

// AuthURL builds the page the user visits to approve token. It performs no
// I/O and cannot fail; the base was validated by NewClient.
func (s *AuthService) AuthURL(token string) *url.URL {
	u := *s.client.authURL
	q := u.Query()
	q.Set("api_key", s.client.apiKey)
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return &u
}

// GetSession exchanges an approved token for a session (auth.getSession).
//
// On success the client's session key is set. Provider errors are
// returned as *AuthError; a success response without a key or name
// returns ErrInvalidSession.
func (s *AuthService) GetSession(ctx context.Context, token string) (*Session, error) {
	const method = "auth.getSession"

	if token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrInvalidConfig)
	}

	body, err := s.client.call(ctx, method, map[string]string{"token": token}, signed)
	if err != nil {
		return nil, asAuthError(err)
	}

	var resp sessionResponse
	if err := decode(method, body, &resp); err != nil {
		return nil, err
	}
	if resp.Session.Key == "" || resp.Session.Name == "" {
		return nil, ErrInvalidSession
	}

	s.client.SetSessionKey(resp.Session.Key)

	return &Session{
		Key:        resp.Session.Key,
		Name:       resp.Session.Name,
		Subscriber: bool(resp.Session.Subscriber),
	}, nil
}
