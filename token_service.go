package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// MinSigningKeyBytes is the minimum key strength for HS512. Shorter keys are
// refused and replaced with a random per-process key.
const MinSigningKeyBytes = 64

// TokenService issues and verifies signed bearer tokens
type TokenService interface {
	IssueAccess(subject string, roles []string) (string, error)
	IssueRefresh(subject string) (string, error)
	Validate(tokenString string) (AuthClaims, error)
	IsExpired(tokenString string) bool
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey   []byte
	accessTTL    time.Duration
	refreshTTL   time.Duration
	issuer       string
	logger       Logger
	ephemeralKey bool
}

// NewTokenService creates a new TokenService instance. If the configured key
// is shorter than MinSigningKeyBytes a random ephemeral key is generated and
// a warning is logged: every token signed before a process restart becomes
// unverifiable after it, unless an operator supplies a persistent key of at
// least 64 bytes.
func NewTokenService(signingKey []byte, accessTTL, refreshTTL time.Duration, issuer string, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}

	ephemeral := false
	if len(signingKey) < MinSigningKeyBytes {
		signingKey = randomSigningKey()
		ephemeral = true
		logger.Warn(
			"configured signing key is shorter than %d bytes required for HS512, using a random ephemeral key; outstanding tokens will not survive a restart",
			MinSigningKeyBytes,
		)
	}

	if accessTTL <= 0 {
		accessTTL = time.Hour
	}

	if refreshTTL <= 0 {
		refreshTTL = 24 * time.Hour
	}

	return &TokenServiceImpl{
		signingKey:   signingKey,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
		issuer:       issuer,
		logger:       logger,
		ephemeralKey: ephemeral,
	}
}

// UsesEphemeralKey reports whether the configured key was rejected as weak
func (ts *TokenServiceImpl) UsesEphemeralKey() bool {
	return ts.ephemeralKey
}

// IssueAccess creates a signed access token carrying the subject's roles
func (ts *TokenServiceImpl) IssueAccess(subject string, roles []string) (string, error) {
	return ts.sign(ts.newClaims(subject, roles, ts.accessTTL))
}

// IssueRefresh creates a signed refresh token. Refresh tokens carry no role
// claims, a refreshed access token picks roles up from the identity store.
func (ts *TokenServiceImpl) IssueRefresh(subject string) (string, error) {
	return ts.sign(ts.newClaims(subject, nil, ts.refreshTTL))
}

func (ts *TokenServiceImpl) newClaims(subject string, roles []string, ttl time.Duration) *JWTClaims {
	now := time.Now()
	return &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles: roles,
	}
}

func (ts *TokenServiceImpl) sign(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and verifies a token string, returning structured claims.
// The signature is checked before any embedded claim is trusted.
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	parserOptions = append(parserOptions, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}))
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		return nil, ts.mapParseError(err)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrTokenMalformed
}

func (ts *TokenServiceImpl) mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenUnsupported
	default:
		return goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}
}

// IsExpired is a non-throwing expiry check used to short-circuit before full
// verification, so clients can tell "expired" from "invalid". A token that
// cannot even be parsed reports as expired rather than raising.
func (ts *TokenServiceImpl) IsExpired(tokenString string) bool {
	claims := &JWTClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return true
	}

	if claims.RegisteredClaims.ExpiresAt == nil {
		return false
	}

	return claims.RegisteredClaims.ExpiresAt.Time.Before(time.Now())
}

func randomSigningKey() []byte {
	key := make([]byte, MinSigningKeyBytes)
	if _, err := rand.Read(key); err != nil {
		// crypto/rand failing means the process cannot mint any secret safely
		panic(fmt.Sprintf("auth: unable to generate ephemeral signing key: %v", err))
	}
	return key
}

var _ TokenService = (*TokenServiceImpl)(nil)
