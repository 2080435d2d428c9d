package accounts

import (
	stderrors "errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-accounts/middleware/csrf"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

type Middleware interface {
	ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
}

func GetRouterSession(c router.Context, key string) (*SessionObject, error) {
	cookie := c.Locals(key)
	if cookie == nil {
		return nil, ErrUnableToFindSession
	}

	token, ok := cookie.(*jwt.Token)
	if token == nil || !ok {
		return nil, ErrUnableToDecodeSession
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if claims == nil || !ok {
		return nil, ErrUnableToMapClaims
	}

	return sessionFromClaims(claims)
}

// RegisterAccountRoutes mounts the account lifecycle endpoints on the router.
func RegisterAccountRoutes[T any](app router.Router[T], opts ...AccountsControllerOption) {

	controller := NewAccountsController(opts...)

	app.Post(controller.Routes.Register, controller.Register).
		SetName("accounts.register")

	app.Get(controller.Routes.Verify+"/:verificationCode", controller.Verify).
		SetName("accounts.verify")

	app.Post(controller.Routes.Authenticate, controller.Authenticate).
		SetName("accounts.authenticate")

	app.Post(controller.Routes.ForgotPassword, controller.ForgotPassword).
		SetName("accounts.forgot-password")

	csrfProtect := csrf.New(csrf.Config{
		SecureKey: csrf.DeriveKey(controller.Config.GetSigningKey()),
	})

	app.Get(controller.Routes.ResetPassword+"/:token", controller.ResetPasswordForm, csrfProtect).
		SetName("accounts.reset-password.get")

	app.Post(controller.Routes.ResetPassword, controller.ResetPasswordExecute, csrfProtect).
		SetName("accounts.reset-password.post")

	csrf.RegisterRoutes(app, []router.MiddlewareFunc{csrfProtect}, csrf.RouteConfig{Path: "/users/api/csrf"})

	app.Get(controller.Routes.Authenticated,
		controller.Authenticated,
		controller.Auther.ProtectedRoute(controller.Config, controller.Auther.MakeClientRouteAuthErrorHandler(false)),
	).SetName("accounts.authenticated")
}

type AccountsControllerRoutes struct {
	Register       string
	Verify         string
	Authenticate   string
	ForgotPassword string
	ResetPassword  string
	Authenticated  string
}

type AccountsControllerViews struct {
	ResetPassword string
}

type AccountsController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Mailer       Mailer
	Config       Config
	Routes       *AccountsControllerRoutes
	Views        *AccountsControllerViews
	Auth         Authenticator
	Auther       HTTPAuthenticator
	ErrorHandler router.ErrorHandler
}

type AccountsControllerOption func(*AccountsController) *AccountsController

func NewAccountsController(opts ...AccountsControllerOption) *AccountsController {
	c := &AccountsController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AccountsControllerRoutes{
			Register:       "/users/api/register",
			Verify:         "/users/verify-now",
			Authenticate:   "/users/api/authenticate",
			ForgotPassword: "/users/api/forgot-password",
			ResetPassword:  "/users/reset-password",
			Authenticated:  "/users/api/authenticated",
		},
		Views: &AccountsControllerViews{
			ResetPassword: "reset_password",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in accounts controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in accounts controller...")
	}

	if c.Auth == nil {
		panic("Missing Authenticator in accounts controller...")
	}

	if c.Config == nil {
		panic("Missing Config in accounts controller...")
	}

	if c.Mailer == nil {
		c.Mailer = NewLogMailer(c.Logger)
	}

	return c
}

func WithControllerRepo(repo RepositoryManager) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther HTTPAuthenticator) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Auther = auther
		return c
	}
}

func WithControllerAuth(auth Authenticator) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Auth = auth
		return c
	}
}

func WithControllerConfig(cfg Config) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Config = cfg
		return c
	}
}

func WithControllerMailer(mailer Mailer) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		c.Mailer = mailer
		return c
	}
}

func WithControllerLogger(logger Logger) AccountsControllerOption {
	return func(c *AccountsController) *AccountsController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// RegisterPayload is the registration body
type RegisterPayload struct {
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Username        string `form:"username" json:"username"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone" json:"phone"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will run validation rules
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Length(1, 200)),
		validation.Field(&r.Username, validation.Required, validation.Length(3, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Length(8, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AccountsController) Register(ctx router.Context) error {
	payload := new(RegisterPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register account parse payload", "error", err)
		return a.badRequest(ctx, "Error parsing body", nil)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register account validate payload", "error", err)
		return a.badRequest(ctx, "Error validating payload", FormatValidationErrorToMap(err))
	}

	req := RegisterAccountMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Username:  payload.Username,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Password:  payload.Password,
	}

	registerAccount := NewRegisterAccountHandler(a.Repo, a.Mailer, a.Config).WithLogger(a.Logger)
	if err := registerAccount.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register account error", "error", err)
		return a.renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusCreated, map[string]any{
		"success": true,
		"message": "Your account is created please verify your email address.",
	})
}

func (a *AccountsController) Verify(ctx router.Context) error {
	code := ctx.Param("verificationCode", "")

	var res *VerifyAccountResponse
	req := VerifyAccountMessage{
		Code: code,
		OnResponse: func(resp *VerifyAccountResponse) {
			res = resp
		},
	}

	verifyAccount := NewVerifyAccountHandler(a.Repo).WithLogger(a.Logger)
	if err := verifyAccount.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("account verification error", "error", err)
		return a.renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
		"message": "Your account is verified.",
		"user":    res.Account.PublicInfo(),
	})
}

// AuthenticatePayload is the login body
type AuthenticatePayload struct {
	Username   string `form:"username" json:"username"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// GetIdentifier returns the identifier
func (r AuthenticatePayload) GetIdentifier() string {
	return r.Username
}

// GetPassword will return the password
func (r AuthenticatePayload) GetPassword() string {
	return r.Password
}

// GetExtendedSession reports whether the session cookie should outlive the default
func (r AuthenticatePayload) GetExtendedSession() bool {
	return r.RememberMe
}

// Validate will run validation rules
func (r AuthenticatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AccountsController) Authenticate(ctx router.Context) error {
	payload := new(AuthenticatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("authenticate parse payload", "error", err)
		return a.badRequest(ctx, "Error parsing body", nil)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("authenticate validate payload", "error", err)
		return a.badRequest(ctx, "Error validating payload", FormatValidationErrorToMap(err))
	}

	result, err := a.Auth.Authenticate(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("authentication error", "error", err)
		return a.renderError(ctx, err)
	}

	a.Auther.SessionCookie(ctx, result.Token, payload.GetExtendedSession())

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
		"user":    result.Account,
		"token":   result.Token,
	})
}

// ForgotPasswordPayload holds values for a password reset request
type ForgotPasswordPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AccountsController) ForgotPassword(ctx router.Context) error {
	payload := new(ForgotPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("forgot password parse payload", "error", err)
		return a.badRequest(ctx, "Error parsing body", nil)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("forgot password validate payload", "error", err)
		return a.badRequest(ctx, "Error validating payload", FormatValidationErrorToMap(err))
	}

	req := InitializePasswordResetMessage{
		Email: payload.Email,
	}

	initPwdReset := NewInitializePasswordResetHandler(a.Repo, a.Mailer, a.Config).WithLogger(a.Logger)
	if err := initPwdReset.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset initialization error", "error", err)
		return a.renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
		"message": "Password reset email sent.",
	})
}

func (a *AccountsController) ResetPasswordForm(ctx router.Context) error {
	token := ctx.Param("token", "")

	var res *ValidatePasswordResetResponse
	req := ValidatePasswordResetMessage{
		Token: token,
		OnResponse: func(resp *ValidatePasswordResetResponse) {
			res = resp
		},
	}

	csrfToken := csrf.TokenFromContext(ctx)

	validateReset := NewValidatePasswordResetHandler(a.Repo).WithLogger(a.Logger)
	if err := validateReset.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset validation error", "error", err)
		return ctx.Render(a.Views.ResetPassword, router.ViewContext{
			"valid":      false,
			"error":      err.Error(),
			"token":      token,
			"csrf_field": csrf.HiddenField("", csrfToken),
		})
	}

	return ctx.Render(a.Views.ResetPassword, router.ViewContext{
		"valid":      res.Valid,
		"token":      token,
		"csrf_field": csrf.HiddenField("", csrfToken),
	})
}

// ResetPasswordPayload holds values to finalize a password reset
type ResetPasswordPayload struct {
	Token           string `form:"token" json:"token"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will run validation rules
func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Length(8, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AccountsController) ResetPasswordExecute(ctx router.Context) error {
	payload := new(ResetPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("reset password parse payload", "error", err)
		return a.badRequest(ctx, "Error parsing body", nil)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("reset password validate payload", "error", err)
		return a.badRequest(ctx, "Error validating payload", FormatValidationErrorToMap(err))
	}

	req := FinalizePasswordResetMessage{
		Token:    payload.Token,
		Password: payload.Password,
	}

	finalizePwdReset := NewFinalizePasswordResetHandler(a.Repo, a.Mailer, a.Config).WithLogger(a.Logger)
	if err := finalizePwdReset.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset finalization error", "error", err)
		return a.renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
		"message": "Your password was updated.",
	})
}

func (a *AccountsController) Authenticated(ctx router.Context) error {
	session, err := GetRouterSession(ctx, a.Config.GetContextKey())
	if err != nil {
		a.Logger.Error("authenticated session error", "error", err)
		return a.renderError(ctx, err)
	}

	identity, err := a.Auth.IdentityFromSession(ctx.Context(), session)
	if err != nil {
		a.Logger.Error("authenticated identity error", "error", err)
		return a.renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
		"user":    publicFromIdentity(identity),
	})
}

func (a *AccountsController) badRequest(ctx router.Context, message string, fields map[string]string) error {
	body := map[string]any{
		"success": false,
		"error":   message,
	}
	if len(fields) > 0 {
		body["validation"] = fields
	}
	return ctx.JSON(fiber.StatusBadRequest, body)
}

// renderError maps rich errors to status codes. Unknown usernames surface as
// 404 while bad credentials surface as 401, matching the upstream API contract.
func (a *AccountsController) renderError(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	code := richErr.Code
	if code == 0 {
		code = fiber.StatusInternalServerError
	}

	return ctx.JSON(code, map[string]any{
		"success": false,
		"error":   richErr.Message,
		"code":    richErr.TextCode,
	})
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return stderrors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a field map.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}

	var verrs validation.Errors
	if stderrors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	if err != nil {
		out["error"] = err.Error()
	}

	return out
}

func defaultErrHandler(c router.Context, err error) error {
	return c.JSON(fiber.StatusInternalServerError, map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}
