package tokens

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/yukikurage/teamwork-api/internal/config"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	jwt.RegisteredClaims
	UserID uint64 `json:"user_id"`
	Type   string `json:"type"`
}

// Pair is what a successful login returns.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Issuer signs and verifies HS256 tokens. Access and refresh tokens use
// different secrets so one can never stand in for the other.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewIssuer(cfg config.JWTConfig) *Issuer {
	return &Issuer{
		accessSecret:  []byte(cfg.Secret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (i *Issuer) IssuePair(userID uint64) (*Pair, error) {
	access, err := i.IssueAccess(userID)
	if err != nil {
		return nil, err
	}
	refresh, err := i.sign(userID, TypeRefresh, i.refreshSecret, i.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(i.accessTTL.Seconds()),
	}, nil
}

func (i *Issuer) IssueAccess(userID uint64) (string, error) {
	return i.sign(userID, TypeAccess, i.accessSecret, i.accessTTL)
}

func (i *Issuer) ParseAccess(token string) (*Claims, error) {
	return i.parse(token, TypeAccess, i.accessSecret)
}

func (i *Issuer) ParseRefresh(token string) (*Claims, error) {
	return i.parse(token, TypeRefresh, i.refreshSecret)
}

func (i *Issuer) sign(userID uint64, typ string, secret []byte, ttl time.Duration) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: userID,
		Type:   typ,
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// parse checks the signature, then validates the time claims against the
// issuer's clock.
func (i *Issuer) parse(tokenString, typ string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	now := i.now()
	if !claims.VerifyExpiresAt(now, true) || !claims.VerifyIssuedAt(now, false) {
		return nil, fmt.Errorf("%w: token is expired or not yet valid", ErrInvalidToken)
	}
	if !token.Valid || claims.Type != typ || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
