package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"patrol-service/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of an officer access token issued after credential
// and biometric verification.
type Claims struct {
	Name      string `json:"name"`
	Rank      string `json:"rank"`
	StationID string `json:"station_id"`
	jwt.RegisteredClaims
}

type Parser struct {
	secret []byte
}

func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(secret)}
}

func (p *Parser) Parse(token string) (model.Principal, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return model.Principal{}, ErrInvalidToken
	}
	rank, ok := model.ParseRank(claims.Rank)
	if !ok {
		return model.Principal{}, fmt.Errorf("%w: unknown rank %q", ErrInvalidToken, claims.Rank)
	}

	return model.Principal{
		ForceID:   claims.Subject,
		Name:      claims.Name,
		Rank:      rank,
		StationID: claims.StationID,
	}, nil
}

// Issue signs an access token for an officer. Used by tooling and tests; the
// login flow itself lives outside this service.
func (p *Parser) Issue(principal model.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:      principal.Name,
		Rank:      string(principal.Rank),
		StationID: principal.StationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.ForceID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}
