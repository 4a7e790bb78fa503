package gateway

import "context"

// TokenPair holds the credentials of the single live session.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// IsZero reports whether no access token is held.
func (pair TokenPair) IsZero() bool {
	return pair.AccessToken == ""
}

// TokenStore persists the TokenPair; it holds no logic beyond get/set/clear.
type TokenStore interface {
	Load(ctx context.Context) (TokenPair, error)
	Save(ctx context.Context, pair TokenPair) error
	Clear(ctx context.Context) error
}
