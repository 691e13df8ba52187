package auth

import "github.com/golang-jwt/jwt/v5"

// ActorClaims is the bearer token payload. The subject names the actor
// recorded on audit entries.
type ActorClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Actor returns the token subject.
func (c *ActorClaims) Actor() string {
	if c == nil {
		return ""
	}
	return c.Subject
}
