package domain

// UserProfile is the identity returned by the profile endpoint.
type UserProfile struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username"`
}

// DisplayName returns the best human readable name for the user
func (u UserProfile) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}

// Session is the locally persisted login state.
// A session is authenticated only when both User and Credentials are set.
type Session struct {
	User        *UserProfile
	Credentials *CredentialPair
}

// Authenticated reports whether the session carries a user and a credential pair.
func (s Session) Authenticated() bool {
	return s.User != nil && s.Credentials != nil
}

// AccessToken returns the current access token or "".
func (s Session) AccessToken() string {
	if s.Credentials == nil {
		return ""
	}
	return s.Credentials.Access
}

// RefreshToken returns the current refresh token or "".
func (s Session) RefreshToken() string {
	if s.Credentials == nil {
		return ""
	}
	return s.Credentials.Refresh
}

// SessionRecord is the on-disk shape of a session.
type SessionRecord struct {
	User            *UserProfile    `json:"user"`
	IsAuthenticated bool            `json:"isAuthenticated"`
	Tokens          *CredentialPair `json:"tokens"`
}

// ToRecord converts the session to its persisted shape.
func (s Session) ToRecord() SessionRecord {
	return SessionRecord{
		User:            s.User,
		IsAuthenticated: s.Authenticated(),
		Tokens:          s.Credentials,
	}
}

// SessionFromRecord rebuilds a session from a persisted record.
// Records with a half-populated credential pair or no user are treated as
// logged out.
func SessionFromRecord(r SessionRecord) Session {
	if r.Tokens == nil || r.Tokens.Validate() != nil || r.User == nil {
		return Session{}
	}
	creds := *r.Tokens
	user := *r.User
	return Session{User: &user, Credentials: &creds}
}
