package auth

import (
	"net/http"
	"strings"

	"github.com/campusgate/gatewatch/internal/middleware"
)

// RequireStaff returns middleware that rejects requests without a valid
// staff session token in the Authorization header. On success the staff
// subject is stored in the request context for logging and rate limiting.
//
// The verification and websocket endpoints are intentionally left outside
// this middleware: camera stations authenticate at the network level.
func RequireStaff(svc *JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				unauthorized(w, r)
				return
			}

			claims, err := svc.ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil || claims.Role != StaffRole {
				unauthorized(w, r)
				return
			}

			ctx := middleware.SetStaffSubject(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	ctx := middleware.SetErrorCode(r.Context(), "auth_failed")
	middleware.UpdateResponseContext(w, ctx)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"auth_failed","message":"Authentication required"}}`))
}
