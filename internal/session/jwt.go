package session

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry decodes the payload segment of a 3-part JWT and returns its
// expiry. The signature is NOT verified: the result is used only to pick a
// user-facing message after the server has already rejected a request.
// Server-side verification remains the sole authority on token validity.
//
// Malformed tokens (wrong segment count, undecodable payload, missing exp)
// return ok=false and never an error or panic: "unknown expiry" degrades to
// the caller's default behavior.
func TokenExpiry(token string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// TokenExpired reports whether the token's locally decoded expiry is in the
// past. Tokens with unknown expiry are reported as not expired, so decode
// failures degrade to the advisory (non-terminal) path.
func TokenExpired(token string, now time.Time) bool {
	exp, ok := TokenExpiry(token)
	if !ok {
		return false
	}
	return exp.Before(now)
}

// TokenSubject returns the user identifier carried in the payload, trying
// the "userId" claim first and the registered "sub" claim second.
func TokenSubject(token string) (string, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return "", false
	}
	if v, ok := claims["userId"]; ok {
		switch id := v.(type) {
		case string:
			return id, id != ""
		case float64:
			return strconv.FormatInt(int64(id), 10), true
		}
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}
