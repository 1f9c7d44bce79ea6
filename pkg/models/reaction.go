package models

// ReactionSummary is the aggregated view of one reaction kind on a message.
type ReactionSummary struct {
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// Notification is a best-effort outbound notification record. Channel is
// "email" or "sms".
type Notification struct {
	ID      string `json:"id"`
	Target  string `json:"target"`
	Message string `json:"message"`
	Channel string `json:"channel"`
	TS      int64  `json:"ts"`
}

// AuthTokens is the token triple returned by the credential provider on a
// successful login.
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
}
