package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims is the flat claim set shared by access and refresh tokens.
// Refresh tokens carry only the registered claims and the type.
type Claims struct {
	TokenType   string   `json:"type"`
	Username    string   `json:"username,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwtlib.RegisteredClaims
}

type Option func(*Service)

// WithClock overrides the time source used for iat/exp and validation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func New(secret string, accessTTL, refreshTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) AccessTTL() time.Duration  { return s.accessTTL }
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

// IssueAccessToken returns the signed token and its jti.
func (s *Service) IssueAccessToken(userID, username string, roles, permissions []string) (string, string, error) {
	claims := s.baseClaims(TypeAccess, userID, s.accessTTL)
	claims.Username = username
	claims.Roles = roles
	claims.Permissions = permissions
	return s.sign(claims)
}

// IssueRefreshToken returns the signed token and its jti; the jti is the ledger key.
func (s *Service) IssueRefreshToken(userID string) (string, string, error) {
	return s.sign(s.baseClaims(TypeRefresh, userID, s.refreshTTL))
}

// DecodeAndVerify checks signature, algorithm and expiry. A token whose
// signature does not verify is ErrTokenInvalid even when it is also expired.
// Expiry is at second granularity: the token is still valid during its exp
// second and expired from the next one.
func (s *Service) DecodeAndVerify(tokenStr string) (*Claims, error) {
	return s.parse(tokenStr, true)
}

// DecodeAccessToken is DecodeAndVerify restricted to access tokens.
func (s *Service) DecodeAccessToken(tokenStr string) (*Claims, error) {
	return s.decodeTyped(tokenStr, TypeAccess, true)
}

// DecodeRefreshToken is DecodeAndVerify restricted to refresh tokens.
func (s *Service) DecodeRefreshToken(tokenStr string) (*Claims, error) {
	return s.decodeTyped(tokenStr, TypeRefresh, true)
}

// DecodeRefreshTokenIgnoringExpiry verifies the signature only; used to find
// the jti of a token being logged out.
func (s *Service) DecodeRefreshTokenIgnoringExpiry(tokenStr string) (*Claims, error) {
	return s.decodeTyped(tokenStr, TypeRefresh, false)
}

func (s *Service) decodeTyped(tokenStr, typ string, validateTimes bool) (*Claims, error) {
	claims, err := s.parse(tokenStr, validateTimes)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != typ {
		return nil, fmt.Errorf("%w: expected %s token", ErrTokenInvalid, typ)
	}
	return claims, nil
}

func (s *Service) baseClaims(typ, userID string, ttl time.Duration) Claims {
	now := s.now()
	return Claims{
		TokenType: typ,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
}

func (s *Service) sign(claims Claims) (string, string, error) {
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("sign token: %w", err)
	}
	return signed, claims.ID, nil
}

func (s *Service) parse(tokenStr string, validateTimes bool) (*Claims, error) {
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		// jwtlib rejects now == exp; exp itself is an accepted second here.
		jwtlib.WithTimeFunc(func() time.Time { return s.now().Truncate(time.Second) }),
		jwtlib.WithLeeway(time.Second),
		jwtlib.WithExpirationRequired(),
	}
	if !validateTimes {
		opts = append(opts, jwtlib.WithoutClaimsValidation())
	}

	claims := &Claims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing sub or jti", ErrTokenInvalid)
	}
	return claims, nil
}
