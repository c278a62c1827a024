package jwt

import (
	"crypto/rsa"
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
	ErrInvalidKey   = errors.New("invalid public key")
)

// Claims are the fields the identity provider puts in a session token.
type Claims struct {
	SessionID       string `json:"sid,omitempty"`
	Email           string `json:"email,omitempty"`
	FullName        string `json:"name,omitempty"`
	AuthorizedParty string `json:"azp,omitempty"`

	jwtlib.RegisteredClaims
}

type Service interface {
	ValidateToken(tokenString string) (Claims, error)
}

// RSAService verifies RS256 session tokens against the provider's public key.
type RSAService struct {
	key     *rsa.PublicKey
	issuer  string
	parties map[string]struct{}
	leeway  time.Duration

	now func() time.Time
}

type Option func(*RSAService)

func WithIssuer(iss string) Option {
	return func(s *RSAService) { s.issuer = strings.TrimSpace(iss) }
}

func WithAuthorizedParties(parties []string) Option {
	return func(s *RSAService) {
		for _, p := range parties {
			p = strings.TrimRight(strings.TrimSpace(p), "/")
			if p == "" {
				continue
			}
			s.parties[p] = struct{}{}
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *RSAService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewRSAService(publicKeyPEM string, opts ...Option) (*RSAService, error) {
	// Keys coming from env files often carry literal "\n" sequences.
	pem := strings.ReplaceAll(strings.TrimSpace(publicKeyPEM), `\n`, "\n")
	if pem == "" {
		return nil, ErrInvalidKey
	}
	key, err := jwtlib.ParseRSAPublicKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, errors.Join(ErrInvalidKey, err)
	}

	s := &RSAService{
		key:     key,
		parties: map[string]struct{}{},
		leeway:  5 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *RSAService) ValidateToken(tokenString string) (Claims, error) {
	if s == nil || s.key == nil {
		return Claims{}, ErrTokenInvalid
	}

	parserOpts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodRS256.Alg()}),
		jwtlib.WithLeeway(s.leeway),
		jwtlib.WithTimeFunc(s.now),
		jwtlib.WithExpirationRequired(),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwtlib.WithIssuer(s.issuer))
	}
	p := jwtlib.NewParser(parserOpts...)

	var c Claims
	tok, err := p.ParseWithClaims(tokenString, &c, func(token *jwtlib.Token) (any, error) {
		return s.key, nil
	})
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if tok == nil || !tok.Valid {
		return Claims{}, ErrTokenInvalid
	}
	if strings.TrimSpace(c.Subject) == "" {
		return Claims{}, ErrTokenInvalid
	}
	if len(s.parties) > 0 && c.AuthorizedParty != "" {
		if _, ok := s.parties[strings.TrimRight(c.AuthorizedParty, "/")]; !ok {
			return Claims{}, ErrTokenInvalid
		}
	}

	return c, nil
}

var _ Service = (*RSAService)(nil)
