package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// KeyResolver returns the signing secret for a verification or signing
// call. It runs on every call so rotated secrets take effect without a
// process restart. An empty result means the secret is not configured.
type KeyResolver func() []byte

// TokenServiceImpl signs and validates tokens against a single secret.
// Use NewVerifier to combine the federated and primary secrets.
type TokenServiceImpl struct {
	resolveKey KeyResolver
	defaultTTL time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
}

var _ TokenService = (*TokenServiceImpl)(nil)

// NewTokenService creates a new TokenService instance
func NewTokenService(resolveKey KeyResolver, defaultTTL time.Duration, issuer string, audience jwt.ClaimStrings, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}
	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Minute
	}
	return &TokenServiceImpl{
		resolveKey: resolveKey,
		defaultTTL: defaultTTL,
		issuer:     issuer,
		audience:   audience,
		logger:     logger,
	}
}

// NewTokenServiceFromConfig builds the token service for the primary
// signing secret described by cfg.
func NewTokenServiceFromConfig(cfg Config, logger Logger) *TokenServiceImpl {
	return NewTokenService(
		func() []byte { return []byte(cfg.GetSigningKey()) },
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		logger,
	)
}

// IssueFor creates a token carrying the identity's subject, role, email,
// and username. An optional ttl overrides the service default.
func (ts *TokenServiceImpl) IssueFor(identity Identity, ttl ...time.Duration) (string, error) {
	if identity == nil {
		return "", errors.New("identity must not be nil", errors.CategoryInternal)
	}

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: identity.Username(),
		},
		UID:       identity.ID(),
		UserRole:  identity.Role(),
		UserEmail: identity.Email(),
		FullName:  identity.Username(),
	}

	return ts.Issue(claims, ttl...)
}

// Issue signs the given claims with the current primary secret, filling in
// issuer, audience, issued-at, expiry, and token id when absent.
func (ts *TokenServiceImpl) Issue(claims *JWTClaims, ttl ...time.Duration) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	now := time.Now()
	expiresIn := ts.defaultTTL
	if len(ttl) > 0 && ttl[0] > 0 {
		expiresIn = ttl[0]
	}

	if claims.RegisteredClaims.Issuer == "" {
		claims.RegisteredClaims.Issuer = ts.issuer
	}
	if len(claims.RegisteredClaims.Audience) == 0 && len(ts.audience) > 0 {
		aud := make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
		claims.RegisteredClaims.Audience = aud
	}
	if claims.RegisteredClaims.IssuedAt == nil {
		claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.RegisteredClaims.ExpiresAt == nil {
		claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(expiresIn))
	}
	ensureTokenID(&claims.RegisteredClaims)

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary JWT claims using the current signing secret.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	key := ts.resolveKey()
	if len(key) == 0 {
		return "", errors.New("signing secret is not configured", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string against the current
// secret, returning structured claims. Failures map to the package
// sentinels so composite validators can decide whether another secret is
// worth trying: ErrTokenUntrusted means wrong secret, ErrTokenExpired is
// terminal, anything undecodable is ErrTokenMalformed.
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	key := ts.resolveKey()
	if len(key) == 0 {
		return nil, ErrTokenUntrusted
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	})

	if err != nil {
		switch {
		// Signature before expiry: jwt v5 joins validation errors, and an
		// expired token signed with a different secret must still read as
		// untrusted so the next secret gets a chance.
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenUntrusted
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
				WithTextCode(ErrTokenMalformed.TextCode)
		}
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrTokenMalformed
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
