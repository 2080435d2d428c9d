package accounts_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// TestIdentity is a simple implementation of Identity interface for testing
type TestIdentity struct {
	id       string
	username string
	email    string
	verified bool
}

func (t TestIdentity) ID() string       { return t.id }
func (t TestIdentity) Username() string { return t.username }
func (t TestIdentity) Email() string    { return t.email }
func (t TestIdentity) Verified() bool   { return t.verified }

// MockLoginPayload implements accounts.LoginPayload
type MockLoginPayload struct {
	Identifier      string
	Password        string
	ExtendedSession bool
}

func (m MockLoginPayload) GetIdentifier() string    { return m.Identifier }
func (m MockLoginPayload) GetPassword() string      { return m.Password }
func (m MockLoginPayload) GetExtendedSession() bool { return m.ExtendedSession }

// MockIdentityProvider implements accounts.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (accounts.Identity, error) {
	args := m.Called(ctx, identifier, password)
	var identity accounts.Identity
	if v, ok := args.Get(0).(accounts.Identity); ok {
		identity = v
	}
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (accounts.Identity, error) {
	args := m.Called(ctx, identifier)
	var identity accounts.Identity
	if v, ok := args.Get(0).(accounts.Identity); ok {
		identity = v
	}
	return identity, args.Error(1)
}

// MockConfig implements accounts.Config
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetSigningKey() string {
	return m.Called().String(0)
}

func (m *MockConfig) GetSigningMethod() string {
	return m.Called().String(0)
}

func (m *MockConfig) GetContextKey() string {
	return m.Called().String(0)
}

func (m *MockConfig) GetTokenExpiration() int {
	return m.Called().Int(0)
}

func (m *MockConfig) GetExtendedTokenDuration() int {
	return m.Called().Int(0)
}

func (m *MockConfig) GetTokenLookup() string {
	return m.Called().String(0)
}

func (m *MockConfig) GetAuthScheme() string {
	return m.Called().String(0)
}

func (m *MockConfig) GetIssuer() string {
	return m.Called().String(0)
}

func (m *MockConfig) GetAudience() []string {
	args := m.Called()
	if v, ok := args.Get(0).([]string); ok {
		return v
	}
	return nil
}

func (m *MockConfig) GetDomain() string {
	return m.Called().String(0)
}

func (m *MockConfig) GetSenderName() string {
	return m.Called().String(0)
}

func (m *MockConfig) GetResetTokenTTL() time.Duration {
	args := m.Called()
	if v, ok := args.Get(0).(time.Duration); ok {
		return v
	}
	return 0
}

func (m *MockConfig) GetRejectedRouteKey() string {
	return m.Called().String(0)
}

func (m *MockConfig) GetRejectedRouteDefault() string {
	return m.Called().String(0)
}

func newMockConfig() *MockConfig {
	mockConfig := new(MockConfig)
	mockConfig.On("GetSigningKey").Return("test-signing-key")
	mockConfig.On("GetTokenExpiration").Return(24)
	mockConfig.On("GetIssuer").Return("test-issuer")
	mockConfig.On("GetAudience").Return([]string{"test:audience"})
	mockConfig.On("GetDomain").Return("http://localhost:3000").Maybe()
	mockConfig.On("GetSenderName").Return("Accounts").Maybe()
	mockConfig.On("GetResetTokenTTL").Return(15 * time.Minute).Maybe()
	return mockConfig
}

// MockRepositoryManager implements accounts.RepositoryManager. RunInTx
// executes the given function against a zero bun.Tx and propagates its
// error, so handler transaction bodies run for real against the mocks.
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Validate() error {
	return m.Called().Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(context.Context, bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	if err := args.Error(0); err != nil {
		return err
	}
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Accounts() accounts.Accounts {
	args := m.Called()
	return args.Get(0).(accounts.Accounts)
}

func (m *MockRepositoryManager) Profiles() repository.Repository[*accounts.Profile] {
	args := m.Called()
	if v, ok := args.Get(0).(repository.Repository[*accounts.Profile]); ok {
		return v
	}
	return nil
}

func accountResult(args mock.Arguments) (*accounts.Account, error) {
	var record *accounts.Account
	if v, ok := args.Get(0).(*accounts.Account); ok {
		record = v
	}
	return record, args.Error(1)
}

// MockAccounts implements accounts.Accounts for the methods the command
// handlers touch. The embedded Repository covers the rest of the interface.
type MockAccounts struct {
	repository.Repository[*accounts.Account]
	mock.Mock
}

func (m *MockAccounts) Register(ctx context.Context, account *accounts.Account) (*accounts.Account, error) {
	return accountResult(m.Called(ctx, account))
}

func (m *MockAccounts) RegisterTx(ctx context.Context, tx bun.IDB, account *accounts.Account) (*accounts.Account, error) {
	return accountResult(m.Called(ctx, tx, account))
}

func (m *MockAccounts) Create(ctx context.Context, record *accounts.Account, criteria ...repository.InsertCriteria) (*accounts.Account, error) {
	return accountResult(m.Called(ctx, record))
}

func (m *MockAccounts) CreateTx(ctx context.Context, tx bun.IDB, record *accounts.Account, criteria ...repository.InsertCriteria) (*accounts.Account, error) {
	return accountResult(m.Called(ctx, tx, record))
}

func (m *MockAccounts) GetByUsername(ctx context.Context, username string) (*accounts.Account, error) {
	return accountResult(m.Called(ctx, username))
}

func (m *MockAccounts) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*accounts.Account, error) {
	return accountResult(m.Called(ctx, tx, username))
}

func (m *MockAccounts) GetByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	return accountResult(m.Called(ctx, email))
}

func (m *MockAccounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*accounts.Account, error) {
	return accountResult(m.Called(ctx, tx, email))
}

func (m *MockAccounts) GetByResetToken(ctx context.Context, token string) (*accounts.Account, error) {
	return accountResult(m.Called(ctx, token))
}

func (m *MockAccounts) GetByResetTokenTx(ctx context.Context, tx bun.IDB, token string) (*accounts.Account, error) {
	return accountResult(m.Called(ctx, tx, token))
}

func (m *MockAccounts) ConsumeVerificationCode(ctx context.Context, code string) (*accounts.Account, error) {
	return accountResult(m.Called(ctx, code))
}

func (m *MockAccounts) ConsumeVerificationCodeTx(ctx context.Context, tx bun.IDB, code string) (*accounts.Account, error) {
	return accountResult(m.Called(ctx, tx, code))
}

func (m *MockAccounts) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresIn time.Time) (*accounts.Account, error) {
	return accountResult(m.Called(ctx, id, token, expiresIn))
}

func (m *MockAccounts) SetResetTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, expiresIn time.Time) (*accounts.Account, error) {
	return accountResult(m.Called(ctx, tx, id, token, expiresIn))
}

func (m *MockAccounts) ConsumeResetToken(ctx context.Context, token, passwordHash string) (*accounts.Account, error) {
	return accountResult(m.Called(ctx, token, passwordHash))
}

func (m *MockAccounts) ConsumeResetTokenTx(ctx context.Context, tx bun.IDB, token, passwordHash string) (*accounts.Account, error) {
	return accountResult(m.Called(ctx, tx, token, passwordHash))
}

// MockAccountStore implements accounts.AccountStore
type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*accounts.Account, error) {
	return accountResult(m.Called(ctx, id))
}

func (m *MockAccountStore) GetByUsername(ctx context.Context, username string) (*accounts.Account, error) {
	return accountResult(m.Called(ctx, username))
}

func (m *MockAccountStore) GetByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	return accountResult(m.Called(ctx, email))
}

// MockMailer records every message so tests can assert on notifications
// dispatched from the fire and forget goroutine.
type MockMailer struct {
	mu   sync.Mutex
	sent []accounts.Email
	ch   chan accounts.Email
}

func NewMockMailer() *MockMailer {
	return &MockMailer{ch: make(chan accounts.Email, 8)}
}

func (m *MockMailer) Send(_ context.Context, msg accounts.Email) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	m.ch <- msg
	return nil
}

func (m *MockMailer) Sent() []accounts.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]accounts.Email, len(m.sent))
	copy(out, m.sent)
	return out
}

// WaitForEmail blocks until a message is dispatched or the timeout elapses.
func (m *MockMailer) WaitForEmail(t *testing.T, timeout time.Duration) accounts.Email {
	t.Helper()
	select {
	case msg := <-m.ch:
		return msg
	case <-time.After(timeout):
		t.Fatal("timed out waiting for email dispatch")
	}
	return accounts.Email{}
}

// MockAuthenticator implements accounts.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, identifier, password string) (string, error) {
	args := m.Called(ctx, identifier, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, identifier, password string) (*accounts.LoginResult, error) {
	args := m.Called(ctx, identifier, password)
	var result *accounts.LoginResult
	if v, ok := args.Get(0).(*accounts.LoginResult); ok {
		result = v
	}
	return result, args.Error(1)
}

func (m *MockAuthenticator) SessionFromToken(token string) (accounts.Session, error) {
	args := m.Called(token)
	var session accounts.Session
	if v, ok := args.Get(0).(accounts.Session); ok {
		session = v
	}
	return session, args.Error(1)
}

func (m *MockAuthenticator) IdentityFromSession(ctx context.Context, session accounts.Session) (accounts.Identity, error) {
	args := m.Called(ctx, session)
	var identity accounts.Identity
	if v, ok := args.Get(0).(accounts.Identity); ok {
		identity = v
	}
	return identity, args.Error(1)
}

// MockContext mocks router.Context
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}

// MockHTTPAuthenticator implements accounts.HTTPAuthenticator
type MockHTTPAuthenticator struct {
	mock.Mock
}

func (m *MockHTTPAuthenticator) ProtectedRoute(cfg accounts.Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	args := m.Called(cfg, errorHandler)
	if fn, ok := args.Get(0).(router.MiddlewareFunc); ok {
		return fn
	}
	return func(next router.HandlerFunc) router.HandlerFunc {
		return next
	}
}

func (m *MockHTTPAuthenticator) Login(c router.Context, payload accounts.LoginPayload) error {
	args := m.Called(c, payload)
	return args.Error(0)
}

func (m *MockHTTPAuthenticator) SessionCookie(c router.Context, token string, extended bool) {
	m.Called(c, token, extended)
}

func (m *MockHTTPAuthenticator) Logout(c router.Context) {
	m.Called(c)
}

func (m *MockHTTPAuthenticator) SetRedirect(c router.Context) {
	m.Called(c)
}

func (m *MockHTTPAuthenticator) GetRedirect(c router.Context, def ...string) string {
	args := m.Called(c, def)
	return args.String(0)
}

func (m *MockHTTPAuthenticator) GetRedirectOrDefault(c router.Context) string {
	args := m.Called(c)
	return args.String(0)
}

func (m *MockHTTPAuthenticator) MakeClientRouteAuthErrorHandler(optionalAuth bool) func(c router.Context, err error) error {
	m.Called(optionalAuth)
	return func(c router.Context, err error) error {
		return err
	}
}

func (m *MockContext) LocalsMerge(key string, value map[string]any) map[string]any {
	args := m.Called(key, value)
	if merged, ok := args.Get(0).(map[string]any); ok {
		return merged
	}
	return value
}

func (m *MockContext) FormValue(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) IP() string {
	args := m.Called()
	return args.String(0)
}
