package accounts

// TokenValidator turns a raw session token into claims. The local TokenService
// is one implementation; deployments that also accept tokens minted elsewhere
// plug in their own.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidatorFunc adapts a plain function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	if f == nil {
		return nil, ErrUnableToDecodeSession
	}
	return f(tokenString)
}

// MultiTokenValidator runs a chain of validators against the same token.
// A malformed result moves on to the next link, any other failure (an expired
// token for instance) stops the chain, since a later validator accepting a
// token the first one rejected outright would mask real errors.
type MultiTokenValidator struct {
	chain []TokenValidator
}

// NewMultiTokenValidator builds the chain, dropping nil entries.
func NewMultiTokenValidator(validators ...TokenValidator) *MultiTokenValidator {
	chain := make([]TokenValidator, 0, len(validators))
	for _, v := range validators {
		if v == nil {
			continue
		}
		chain = append(chain, v)
	}
	return &MultiTokenValidator{chain: chain}
}

func (m *MultiTokenValidator) Validate(tokenString string) (AuthClaims, error) {
	var malformed error

	for _, v := range m.chain {
		claims, err := v.Validate(tokenString)
		switch {
		case err == nil:
			return claims, nil
		case IsMalformedError(err):
			malformed = err
		default:
			return nil, err
		}
	}

	if malformed != nil {
		return nil, malformed
	}
	return nil, ErrTokenMalformed
}
