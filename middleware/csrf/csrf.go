package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-router"
)

var (
	ErrTokenMissing  = errors.New("CSRF token missing")
	ErrTokenMismatch = errors.New("CSRF token mismatch")
	ErrTokenExpired  = errors.New("CSRF token expired")
)

// DefaultContextKey is where the minted token is stored on the request context.
const DefaultContextKey = "csrf_token"

// DefaultFormField is the form field checked on unsafe methods.
const DefaultFormField = "_token"

// DefaultHeader is the header checked when no form field is present.
const DefaultHeader = "X-CSRF-Token"

// DefaultTTL bounds how long an issued token stays valid. Password reset
// links expire quickly, the form token should not outlive them by much.
const DefaultTTL = time.Hour

const nonceLength = 32

// Config defines the CSRF middleware options.
type Config struct {
	// Skip defines a function to bypass the middleware
	Skip func(router.Context) bool

	// SecureKey signs tokens. Must be at least 32 bytes.
	SecureKey []byte

	// TTL defines how long an issued token stays valid
	TTL time.Duration

	// ContextKey defines where the token is stored on the request context
	ContextKey string

	// FormField defines the form field carrying the token on submits
	FormField string

	// Header defines the header carrying the token for API clients
	Header string

	// SafeMethods defines HTTP methods exempt from validation
	SafeMethods []string

	// ErrorHandler defines the failure response
	ErrorHandler router.ErrorHandler
}

// DeriveKey stretches an application secret into a signing key of the
// required length.
func DeriveKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// New returns a middleware that mints a token on every request and validates
// it on unsafe methods. Tokens are stateless: an HMAC over a nonce, the issue
// time, and the client scope, so no server side storage is involved.
func New(config ...Config) router.MiddlewareFunc {
	cfg := configDefault(config...)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return ctx.Next()
			}

			token, err := mintToken(ctx, cfg)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, token)
			ctx.Locals(cfg.ContextKey+"_field", cfg.FormField)
			ctx.Locals(cfg.ContextKey+"_header", cfg.Header)

			method := strings.ToUpper(ctx.Method())
			if slices.Contains(cfg.SafeMethods, method) {
				return next(ctx)
			}

			if err := verifyToken(ctx, cfg); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			return next(ctx)
		}
	}
}

// TokenFromContext reads the token the middleware stored for this request.
func TokenFromContext(ctx router.Context, key ...string) string {
	k := DefaultContextKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	token, _ := ctx.Locals(k).(string)
	return token
}

// HiddenField renders the hidden input carrying the token in an HTML form.
func HiddenField(field, token string) string {
	if field == "" {
		field = DefaultFormField
	}
	return `<input type="hidden" name="` + field + `" value="` + token + `">`
}

func mintToken(ctx router.Context, cfg Config) (string, error) {
	nonce := make([]byte, nonceLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	// The scope is hex encoded so the payload always splits into exactly
	// four colon separated parts, whatever characters the scope carries.
	issued := time.Now().UTC().Unix()
	payload := fmt.Sprintf("%d:%s:%s", issued, hex.EncodeToString(nonce), hex.EncodeToString([]byte(scopeKey(ctx))))

	mac := hmac.New(sha256.New, cfg.SecureKey)
	mac.Write([]byte(payload))
	sig := mac.Sum(nil)

	token := payload + ":" + hex.EncodeToString(sig)
	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

func verifyToken(ctx router.Context, cfg Config) error {
	received := extractToken(ctx, cfg)
	if received == "" {
		return ErrTokenMissing
	}

	decoded, err := base64.RawURLEncoding.DecodeString(received)
	if err != nil {
		return ErrTokenMismatch
	}

	parts := strings.Split(string(decoded), ":")
	if len(parts) != 4 {
		return ErrTokenMismatch
	}

	issuedStr, nonceHex, scopeHex, sigHex := parts[0], parts[1], parts[2], parts[3]

	issued, err := strconv.ParseInt(issuedStr, 10, 64)
	if err != nil {
		return ErrTokenMismatch
	}
	if _, err := hex.DecodeString(nonceHex); err != nil {
		return ErrTokenMismatch
	}
	scope, err := hex.DecodeString(scopeHex)
	if err != nil {
		return ErrTokenMismatch
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return ErrTokenMismatch
	}

	payload := strings.Join(parts[:3], ":")
	mac := hmac.New(sha256.New, cfg.SecureKey)
	mac.Write([]byte(payload))
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return ErrTokenMismatch
	}

	if subtle.ConstantTimeCompare(scope, []byte(scopeKey(ctx))) != 1 {
		return ErrTokenMismatch
	}

	if cfg.TTL > 0 && time.Now().UTC().After(time.Unix(issued, 0).Add(cfg.TTL)) {
		return ErrTokenExpired
	}

	return nil
}

// scopeKey binds a token to the requesting client. A session id wins when one
// exists, otherwise the client IP is used.
func scopeKey(ctx router.Context) string {
	if raw := ctx.Locals("session_id"); raw != nil {
		if id, ok := raw.(string); ok && id != "" {
			return "session:" + id
		}
	}
	return "ip:" + ctx.IP()
}

func extractToken(ctx router.Context, cfg Config) string {
	if token := ctx.FormValue(cfg.FormField); token != "" {
		return token
	}
	return ctx.GetString(cfg.Header, "")
}

func configDefault(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}
	if cfg.FormField == "" {
		cfg.FormField = DefaultFormField
	}
	if cfg.Header == "" {
		cfg.Header = DefaultHeader
	}
	if cfg.SafeMethods == nil {
		cfg.SafeMethods = []string{"GET", "HEAD", "OPTIONS", "TRACE"}
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	cfg.SecureKey = requireSecureKey(cfg.SecureKey)

	return cfg
}

func defaultErrorHandler(ctx router.Context, err error) error {
	switch err {
	case ErrTokenMissing:
		return ctx.Status(router.StatusBadRequest).SendString("CSRF token missing")
	case ErrTokenMismatch:
		return ctx.Status(router.StatusForbidden).SendString("CSRF token mismatch")
	case ErrTokenExpired:
		return ctx.Status(router.StatusForbidden).SendString("CSRF token expired")
	default:
		return ctx.Status(router.StatusInternalServerError).SendString("CSRF validation error")
	}
}

func requireSecureKey(key []byte) []byte {
	if len(key) > 0 {
		if len(key) < 32 {
			panic(fmt.Errorf("csrf: secure key must be at least 32 bytes, got %d", len(key)))
		}
		return key
	}
	generated := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, generated); err != nil {
		panic(fmt.Errorf("csrf: unable to initialize secure key: %w", err))
	}
	return generated
}
