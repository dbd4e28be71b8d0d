package utils // package utils provides helpers for issuing and reading access tokens

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/service-booking/internal/booking"
	"github.com/iliyamo/service-booking/internal/model"
)

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

var (
	errBadSubject = errors.New("token subject is not a user id")
	errBadRole    = errors.New("token role is not recognised")
)

// NewAccessToken builds and signs an HS256 JWT for a user.  The identity
// service issues tokens in production; this is used by the dev token tool
// and by tests.  The claims are sub (user id), role, exp and iat.
func NewAccessToken(secret string, userID uint64, role model.Role, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(userID, 10),
		"role": string(role),
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies an HS256 token and resolves its claims into a
// Principal.  The sub claim may be a JSON number or a decimal string.
func ParseAccessToken(secret, raw string) (booking.Principal, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject anything that is not HMAC signed.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return booking.Principal{}, err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return booking.Principal{}, jwt.ErrTokenInvalidClaims
	}

	id, err := subjectID(claims["sub"])
	if err != nil {
		return booking.Principal{}, err
	}
	roleName, _ := claims["role"].(string)
	role := model.Role(roleName)
	if !role.Valid() {
		return booking.Principal{}, errBadRole
	}
	return booking.Principal{ID: id, Role: role}, nil
}

func subjectID(v any) (uint64, error) {
	switch s := v.(type) {
	case string:
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil || id == 0 {
			return 0, errBadSubject
		}
		return id, nil
	case float64:
		if s < 1 || s != float64(uint64(s)) {
			return 0, errBadSubject
		}
		return uint64(s), nil
	}
	return 0, errBadSubject
}
