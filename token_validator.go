package auth

// TokenValidator validates tokens and extracts claims without tying callers
// to a specific signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	if f == nil {
		return nil, ErrTokenMalformed
	}
	return f(tokenString)
}

// MultiTokenValidator tries validators in order until one succeeds.
// Untrusted-signature and malformed results mean "try next"; anything
// else (expired, inactive key material) is terminal. If every validator
// falls through, the last failure is returned.
type MultiTokenValidator struct {
	validators []TokenValidator
}

// NewMultiTokenValidator filters nil validators and returns a composite validator.
func NewMultiTokenValidator(validators ...TokenValidator) *MultiTokenValidator {
	filtered := make([]TokenValidator, 0, len(validators))
	for _, v := range validators {
		if v != nil {
			filtered = append(filtered, v)
		}
	}
	return &MultiTokenValidator{validators: filtered}
}

// Validate satisfies the TokenValidator interface.
func (m *MultiTokenValidator) Validate(tokenString string) (AuthClaims, error) {
	var lastErr error
	for _, v := range m.validators {
		claims, err := v.Validate(tokenString)
		if err == nil {
			return claims, nil
		}
		if IsUntrustedError(err) || IsMalformedError(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrTokenUntrusted
}

// NewVerifier builds the verification chain for cfg: the federated
// secret is tried first when configured, then the primary secret. The
// order matters because federated and local tokens are structurally
// indistinguishable; a local token merely fails the federated secret's
// signature check and falls through. Both secrets are re-read from cfg
// on every call.
func NewVerifier(cfg Config, logger Logger) TokenValidator {
	if logger == nil {
		logger = defLogger{}
	}

	federated := NewTokenService(
		func() []byte { return []byte(cfg.GetFederatedSigningKey()) },
		cfg.GetTokenExpiration(),
		"", nil,
		logger,
	)
	primary := NewTokenServiceFromConfig(cfg, logger)

	return NewMultiTokenValidator(federated, primary)
}
