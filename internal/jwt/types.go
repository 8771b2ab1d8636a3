package jwt

import "time"

const DefaultTokenTTL = 24 * time.Hour

type User struct {
	Id           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"password"`
}

// Claims are the identifiers carried by an access token.
type Claims struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}
