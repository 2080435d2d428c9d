package csrf

import "github.com/goliatone/go-router"

// RouteConfig controls the token bootstrap endpoint.
type RouteConfig struct {
	// Path is the route registered for retrieving the CSRF token.
	Path string
	// ContextKey is the context key where the middleware stored the token.
	ContextKey string
	// RouteName is the name assigned to the registered route.
	RouteName string
}

const (
	defaultRoutePath = "/csrf"
	defaultRouteName = "accounts.csrf.get"
)

// RegisterRoutes registers a GET endpoint that returns the current CSRF token
// and the field and header names a client should echo it back in. The CSRF
// middleware must run before the handler so the token is on the context;
// pass it here or mount it on the app yourself.
func RegisterRoutes[T any](app router.Router[T], middleware []router.MiddlewareFunc, cfg ...RouteConfig) {
	conf := routeConfigDefault(cfg...)
	handlers := append([]router.MiddlewareFunc{}, middleware...)
	app.Get(conf.Path, tokenHandler(conf), handlers...).SetName(conf.RouteName)
}

func routeConfigDefault(cfg ...RouteConfig) RouteConfig {
	conf := RouteConfig{
		Path:       defaultRoutePath,
		ContextKey: DefaultContextKey,
		RouteName:  defaultRouteName,
	}
	if len(cfg) == 0 {
		return conf
	}

	c := cfg[0]
	if c.Path != "" {
		conf.Path = c.Path
	}
	if c.ContextKey != "" {
		conf.ContextKey = c.ContextKey
	}
	if c.RouteName != "" {
		conf.RouteName = c.RouteName
	}
	return conf
}

func tokenHandler(cfg RouteConfig) router.HandlerFunc {
	return func(ctx router.Context) error {
		token, _ := ctx.Locals(cfg.ContextKey).(string)
		if token == "" {
			return ctx.JSON(router.StatusUnauthorized, map[string]string{
				"error": ErrTokenMissing.Error(),
			})
		}

		ctx.SetHeader("Cache-Control", "no-store, max-age=0")

		field, _ := ctx.Locals(cfg.ContextKey + "_field").(string)
		if field == "" {
			field = DefaultFormField
		}

		header, _ := ctx.Locals(cfg.ContextKey + "_header").(string)
		if header == "" {
			header = DefaultHeader
		}

		return ctx.JSON(router.StatusOK, map[string]string{
			"token":       token,
			"field_name":  field,
			"header_name": header,
		})
	}
}
