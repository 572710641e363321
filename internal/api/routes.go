package api

import (
	"net/http"
	"strings"

	"github.com/campusgate/gatewatch/internal/middleware"
)

// Middleware wraps a handler, e.g. staff auth or a per-route rate limit.
type Middleware func(http.Handler) http.Handler

// RouterConfig collects the handler sets the router dispatches to.
// Photos may be nil when photo storage is not configured. RequireStaff
// protects administrative and manual-override routes; LoginLimiter applies
// the tighter auth rate limit to the login route. Either may be nil.
type RouterConfig struct {
	Verify     *VerifyHandlers
	AccessLogs *AccessLogHandlers
	Alerts     *AlertHandlers
	Identities *IdentityHandlers
	Vehicles   *VehicleHandlers
	Auth       *AuthHandlers
	Photos     *PhotoHandlers
	WS         *WSHandlers
	Health     *HealthHandlers
	Metrics    http.Handler

	RequireStaff Middleware
	LoginLimiter Middleware
}

// NewRouter assembles the HTTP routes. Method dispatch happens here;
// handlers only see requests with the right verb.
func NewRouter(cfg RouterConfig) *http.ServeMux {
	staff := cfg.RequireStaff
	if staff == nil {
		staff = func(next http.Handler) http.Handler { return next }
	}
	loginLimiter := cfg.LoginLimiter
	if loginLimiter == nil {
		loginLimiter = func(next http.Handler) http.Handler { return next }
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/", root)
	mux.HandleFunc("/health", cfg.Health.Health)
	mux.HandleFunc("/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}

	// Gate station endpoints. /verify-access is unauthenticated: the
	// camera stations sit on a trusted network segment. Manual overrides
	// are staff decisions and need a session token.
	mux.Handle("/verify-access", method(http.MethodPost, cfg.Verify.VerifyAccess))
	mux.Handle("/grant-access", staff(method(http.MethodPost, cfg.Verify.GrantAccess)))
	mux.Handle("/deny-access", staff(method(http.MethodPost, cfg.Verify.DenyAccess)))

	// Dashboard endpoints
	mux.Handle("/access-logs", method(http.MethodGet, cfg.AccessLogs.ListAccessLogs))
	mux.Handle("/dashboard/stats", method(http.MethodGet, cfg.AccessLogs.DashboardStats))
	mux.Handle("/alerts", method(http.MethodGet, cfg.Alerts.ListAlerts))
	mux.Handle("/alerts/", method(http.MethodPut, cfg.Alerts.MarkAlertRead))
	mux.HandleFunc("/ws", cfg.WS.Subscribe)

	// Staff session
	mux.Handle("/auth/login", loginLimiter(method(http.MethodPost, cfg.Auth.Login)))

	// Administrative CRUD
	mux.Handle("/identities", staff(methods(map[string]http.HandlerFunc{
		http.MethodGet:  cfg.Identities.ListIdentities,
		http.MethodPost: cfg.Identities.CreateIdentity,
	})))
	mux.Handle("/identities/", staff(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/photo-url") {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, r)
				return
			}
			if cfg.Photos == nil {
				ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
				WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Photo storage is not configured")
				return
			}
			cfg.Photos.RequestUploadURL(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet:
			cfg.Identities.GetIdentity(w, r)
		case http.MethodPut:
			cfg.Identities.UpdateIdentity(w, r)
		case http.MethodDelete:
			cfg.Identities.DeactivateIdentity(w, r)
		default:
			methodNotAllowed(w, r)
		}
	})))
	mux.Handle("/vehicles", staff(methods(map[string]http.HandlerFunc{
		http.MethodGet:  cfg.Vehicles.ListVehicles,
		http.MethodPost: cfg.Vehicles.CreateVehicle,
	})))
	mux.Handle("/vehicles/", staff(methods(map[string]http.HandlerFunc{
		http.MethodGet:    cfg.Vehicles.GetVehicle,
		http.MethodDelete: cfg.Vehicles.DeleteVehicle,
	})))

	return mux
}

// root answers the exact root path with service info and everything
// unrouted with a structured 404.
func root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "The requested resource was not found")
		return
	}
	writeJSON(w, r.Context(), http.StatusOK, map[string]string{
		"service": "gatewatch-api",
		"version": "0.1.0",
	})
}

func method(verb string, h http.HandlerFunc) http.Handler {
	return methods(map[string]http.HandlerFunc{verb: h})
}

func methods(handlers map[string]http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.Method]; ok {
			h(w, r)
			return
		}
		methodNotAllowed(w, r)
	})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
	WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
}
