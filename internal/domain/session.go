package domain

import "context"

// PersistedSession is the subset of session state that survives restarts.
type PersistedSession struct {
	User            *User  `json:"user"`
	AccessToken     string `json:"accessToken"`
	RefreshToken    string `json:"refreshToken"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// Complete reports whether the session holds a user and both tokens.
func (s PersistedSession) Complete() bool {
	return s.User != nil && s.AccessToken != "" && s.RefreshToken != ""
}

// SessionRepository persists the authenticated session. Load returns a zero
// value when nothing has been stored yet.
type SessionRepository interface {
	Load(ctx context.Context) (PersistedSession, error)
	Save(ctx context.Context, session PersistedSession) error
	Clear(ctx context.Context) error
}
