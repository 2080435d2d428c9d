package accounts_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	ctx := context.Background()
	mockProvider := new(MockIdentityProvider)
	mockConfig := newMockConfig()

	authenticator := accounts.NewAuthenticator(mockProvider, mockConfig).
		WithLogger(testLogger{})

	t.Run("Successful login", func(t *testing.T) {
		identity := TestIdentity{
			id:       uuid.New().String(),
			username: "testuser",
			email:    "test@example.com",
			verified: true,
		}

		mockProvider.On("VerifyIdentity", ctx, "test@example.com", "password123").
			Return(identity, nil).Once()

		token, err := authenticator.Login(ctx, "test@example.com", "password123")

		assert.NoError(t, err)
		assert.NotEmpty(t, token)

		parsedToken, err := jwt.ParseWithClaims(token, &accounts.JWTClaims{}, func(t *jwt.Token) (any, error) {
			return []byte("test-signing-key"), nil
		})

		assert.NoError(t, err)
		assert.True(t, parsedToken.Valid)

		claims, ok := parsedToken.Claims.(*accounts.JWTClaims)
		assert.True(t, ok)
		assert.Equal(t, identity.ID(), claims.Subject())
		assert.Equal(t, identity.ID(), claims.AccountID())
		assert.Equal(t, "test-issuer", claims.RegisteredClaims.Issuer)
		assert.Equal(t, jwt.ClaimStrings{"test:audience"}, claims.RegisteredClaims.Audience)
		assert.NotEmpty(t, claims.RegisteredClaims.ID)
	})

	t.Run("Failed login - invalid credentials", func(t *testing.T) {
		mockProvider.On("VerifyIdentity", ctx, "bad@example.com", "wrongpassword").
			Return(nil, errors.New("invalid credentials")).Once()

		token, err := authenticator.Login(ctx, "bad@example.com", "wrongpassword")

		assert.Error(t, err)
		assert.Empty(t, token)
		assert.Contains(t, err.Error(), "invalid credentials")
	})

	t.Run("Failed login - account not found", func(t *testing.T) {
		mockProvider.On("VerifyIdentity", ctx, "unknown@example.com", "password123").
			Return(nil, accounts.ErrAccountNotFound).Once()

		token, err := authenticator.Login(ctx, "unknown@example.com", "password123")

		assert.ErrorIs(t, err, accounts.ErrAccountNotFound)
		assert.Empty(t, token)
	})

	t.Run("Nil identity from provider", func(t *testing.T) {
		mockProvider.On("VerifyIdentity", ctx, "ghost@example.com", "password123").
			Return(nil, nil).Once()

		token, err := authenticator.Login(ctx, "ghost@example.com", "password123")

		assert.ErrorIs(t, err, accounts.ErrAccountNotFound)
		assert.Empty(t, token)
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	mockProvider := new(MockIdentityProvider)
	mockConfig := newMockConfig()

	authenticator := accounts.NewAuthenticator(mockProvider, mockConfig).
		WithLogger(testLogger{})

	id := uuid.New()
	identity := TestIdentity{
		id:       id.String(),
		username: "testuser",
		email:    "test@example.com",
		verified: true,
	}

	mockProvider.On("VerifyIdentity", ctx, "testuser", "password123").
		Return(identity, nil).Once()

	result, err := authenticator.Authenticate(ctx, "testuser", "password123")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.NotEmpty(t, result.Token)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), result.ExpiresAt, time.Minute)

	require.NotNil(t, result.Account)
	assert.Equal(t, id, result.Account.ID)
	assert.Equal(t, "testuser", result.Account.Username)
	assert.Equal(t, "test@example.com", result.Account.Email)
	assert.True(t, result.Account.Verified)
}

func TestSessionFromToken(t *testing.T) {
	mockProvider := new(MockIdentityProvider)
	mockConfig := newMockConfig()

	authenticator := accounts.NewAuthenticator(mockProvider, mockConfig).
		WithLogger(testLogger{})

	identity := TestIdentity{
		id:       uuid.New().String(),
		username: "testuser",
		email:    "test@example.com",
	}

	t.Run("valid token round trips", func(t *testing.T) {
		mockProvider.On("VerifyIdentity", mock.Anything, "testuser", "password123").
			Return(identity, nil).Once()

		token, err := authenticator.Login(context.Background(), "testuser", "password123")
		require.NoError(t, err)

		session, err := authenticator.SessionFromToken(token)
		require.NoError(t, err)
		assert.Equal(t, identity.ID(), session.GetAccountID())
		assert.Equal(t, "test-issuer", session.GetIssuer())
		assert.Equal(t, []string{"test:audience"}, session.GetAudience())
		require.NotNil(t, session.GetIssuedAt())

		uid, err := session.GetAccountUUID()
		require.NoError(t, err)
		assert.Equal(t, identity.ID(), uid.String())
	})

	t.Run("malformed token is rejected", func(t *testing.T) {
		_, err := authenticator.SessionFromToken("not.a.token")
		require.Error(t, err)
		assert.True(t, accounts.IsMalformedError(err))
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		expiredService := accounts.NewTokenService(
			[]byte("test-signing-key"), -1, "test-issuer", []string{"test:audience"}, testLogger{},
		)
		token, err := expiredService.Generate(identity)
		require.NoError(t, err)

		_, err = authenticator.SessionFromToken(token)
		require.ErrorIs(t, err, accounts.ErrTokenExpired)
	})

	t.Run("custom token validator takes over", func(t *testing.T) {
		custom := accounts.TokenValidatorFunc(func(raw string) (accounts.AuthClaims, error) {
			if raw != "opaque-token" {
				return nil, accounts.ErrTokenMalformed
			}
			return &accounts.JWTClaims{UID: "external-account"}, nil
		})

		withValidator := accounts.NewAuthenticator(mockProvider, mockConfig).
			WithLogger(testLogger{}).
			WithTokenValidator(custom)

		session, err := withValidator.SessionFromToken("opaque-token")
		require.NoError(t, err)
		assert.Equal(t, "external-account", session.GetAccountID())

		_, err = withValidator.SessionFromToken("anything-else")
		require.Error(t, err)
	})
}

func TestIdentityFromSession(t *testing.T) {
	ctx := context.Background()
	mockProvider := new(MockIdentityProvider)

	authenticator := accounts.NewAuthenticator(mockProvider, newMockConfig()).
		WithLogger(testLogger{})

	identity := TestIdentity{
		id:       uuid.New().String(),
		username: "testuser",
		email:    "test@example.com",
	}

	mockProvider.On("FindIdentityByIdentifier", ctx, identity.ID()).
		Return(identity, nil).Once()

	session := &accounts.SessionObject{AccountID: identity.ID()}

	found, err := authenticator.IdentityFromSession(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, identity.Email(), found.Email())

	mockProvider.On("FindIdentityByIdentifier", ctx, "missing").
		Return(nil, accounts.ErrAccountNotFound).Once()

	_, err = authenticator.IdentityFromSession(ctx, &accounts.SessionObject{AccountID: "missing"})
	require.ErrorIs(t, err, accounts.ErrAccountNotFound)
}
