package jwtware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var (
	defaultTokenLookup       = "header:" + fiber.HeaderAuthorization + ",query:token"
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")
)

// TokenValidator validates raw tokens without creating import cycles.
// This mirrors the TokenService methods from the auth package.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
	IsExpired(tokenString string) bool
}

// AuthClaims interface for structured claims without import cycles
// This mirrors the AuthClaims interface from the auth package
type AuthClaims interface {
	Subject() string
	RoleNames() []string
	HasRole(role string) bool
}

// Identity is the resolved account behind a set of claims.
// This mirrors the Identity interface from the auth package.
type Identity interface {
	ID() string
	Username() string
	Email() string
	Roles() []string
}

// IdentityResolver loads the account named by validated claims. A miss means
// the account was removed or disabled after the token was issued.
type IdentityResolver interface {
	FindIdentityByIdentifier(ctx *fiber.Ctx, identifier string) (Identity, error)
}

// IdentityResolverFunc adapts a function to the IdentityResolver interface
type IdentityResolverFunc func(ctx *fiber.Ctx, identifier string) (Identity, error)

func (f IdentityResolverFunc) FindIdentityByIdentifier(ctx *fiber.Ctx, identifier string) (Identity, error) {
	return f(ctx, identifier)
}

type Config struct {
	Filter         func(*fiber.Ctx) bool
	SuccessHandler fiber.Handler
	ErrorHandler   fiber.ErrorHandler
	ContextKey     string
	IdentityKey    string
	TokenLookup    string
	AuthScheme     string
	// TokenValidator is required for token validation
	TokenValidator TokenValidator
	// Resolver is optional. When set, validated claims are resolved to a
	// stored identity and requests whose subject no longer exists are
	// rejected.
	Resolver IdentityResolver
	// RequiredRole specifies an exact role that must be present
	RequiredRole string
}

// New returns a middleware that authenticates requests carrying a bearer
// token. Requests without any token pass through unauthenticated; handlers
// behind the middleware decide whether anonymous access is acceptable.
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	return func(ctx *fiber.Ctx) (err error) {
		// Anything unexpected below must never let the request continue
		// as if it had been authenticated.
		defer func() {
			if r := recover(); r != nil {
				err = ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "authentication failure",
				})
			}
		}()

		if cfg.Filter != nil && cfg.Filter(ctx) {
			return ctx.Next()
		}

		raw, err := ExtractRawTokenFromContext(ctx, cfg.getExtractors())
		if err != nil || raw == "" {
			return ctx.Next()
		}

		if cfg.TokenValidator.IsExpired(raw) {
			return cfg.ErrorHandler(ctx, ErrTokenExpired)
		}

		claims, err := cfg.TokenValidator.Validate(raw)
		if err != nil {
			return cfg.ErrorHandler(ctx, err)
		}

		identity, err := cfg.resolveIdentity(ctx, claims)
		if err != nil {
			return cfg.ErrorHandler(ctx, err)
		}

		if cfg.RequiredRole != "" && !claims.HasRole(cfg.RequiredRole) {
			return cfg.ErrorHandler(ctx, fmt.Errorf("access denied: required role %q not found", cfg.RequiredRole))
		}

		ctx.Locals(cfg.ContextKey, claims)
		if identity != nil {
			ctx.Locals(cfg.IdentityKey, identity)
		}

		return cfg.SuccessHandler(ctx)
	}
}

// ErrTokenExpired reports a token that failed the pre-validation expiry check
var ErrTokenExpired = errors.New("token is expired")

// ErrIdentityNotFound reports claims whose subject has no backing account
var ErrIdentityNotFound = errors.New("user not found")

func (cfg *Config) resolveIdentity(ctx *fiber.Ctx, claims AuthClaims) (Identity, error) {
	if cfg.Resolver == nil {
		return nil, nil
	}

	identity, err := cfg.Resolver.FindIdentityByIdentifier(ctx, claims.Subject())
	if err != nil {
		return nil, ErrIdentityNotFound
	}
	return identity, nil
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx *fiber.Ctx) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
	}

	if cfg.TokenValidator == nil {
		panic("AUTH: JWT middleware configuration: TokenValidator is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.IdentityKey == "" {
		cfg.IdentityKey = "identity"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func ExtractRawTokenFromContext(ctx *fiber.Ctx, extractors []JWTExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	// header:Authorization,cookie:jwt,query:auth_token,param:token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		//header:Authorization
		parts := strings.Split(strings.TrimSpace(rootPart), ":")

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, jwtFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, jwtFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(parts[1]))
		}
	}

	return extractors
}

type JWTExtractor func(c *fiber.Ctx) (string, error)

// jwtFromHeader returns a function that extracts token from the request header.
func jwtFromHeader(header string, authScheme string) func(c *fiber.Ctx) (string, error) {
	return func(c *fiber.Ctx) (string, error) {
		a := c.Get(header)
		l := len(authScheme)
		if l == 0 {
			return "", ErrJWTMissingOrMalformed
		}
		authScheme = strings.TrimSpace(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrJWTMissingOrMalformed
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) func(c *fiber.Ctx) (string, error) {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Query(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromParam returns a function that extracts token from the url param string.
func jwtFromParam(param string) func(c *fiber.Ctx) (string, error) {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Params(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) func(c *fiber.Ctx) (string, error) {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}
