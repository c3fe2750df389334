package authz

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/helios-crm/helios-crm/internal/platform/httpx"
	"github.com/helios-crm/helios-crm/internal/shared"
)

// Middleware wires authorization guards for HTTP handlers. Each protected
// route declares its required checks explicitly at registration; routes with
// no declared checks pass through.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireAny grants access when at least one declared check passes.
// Check strings use the "resource:action[:condition]" format; malformed
// declarations panic at route registration.
func (m Middleware) RequireAny(checks ...string) func(http.Handler) http.Handler {
	parsed := mustParseChecks(checks)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(parsed) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			principalID, ok := m.currentPrincipalID(r)
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			ctx := shared.ContextWithPrincipalID(r.Context(), principalID)
			data := resourceData(r)
			for _, check := range parsed {
				if m.Service.HasPermission(ctx, principalID, check, data) {
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			httpx.RespondError(w, shared.ErrForbidden)
		})
	}
}

// RequireAll grants access only when every declared check passes.
func (m Middleware) RequireAll(checks ...string) func(http.Handler) http.Handler {
	parsed := mustParseChecks(checks)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(parsed) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			principalID, ok := m.currentPrincipalID(r)
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			ctx := shared.ContextWithPrincipalID(r.Context(), principalID)
			data := resourceData(r)
			for _, check := range parsed {
				if !m.Service.HasPermission(ctx, principalID, check, data) {
					httpx.RespondError(w, shared.ErrForbidden)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (m Middleware) currentPrincipalID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("authz parse principal id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}

// resourceData extracts what little resource context a request carries
// before the entity is fetched: the addressable identifier, when present.
// Condition enforcement against record ownership happens in the service
// layer once the row is loaded.
func resourceData(r *http.Request) map[string]any {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return map[string]any{"id": raw}
	}
	return map[string]any{"id": id}
}

func mustParseChecks(raw []string) []Check {
	checks := make([]Check, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, entry := range raw {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if _, dup := seen[entry]; dup {
			continue
		}
		seen[entry] = struct{}{}
		check, err := ParseCheck(entry)
		if err != nil {
			panic(fmt.Sprintf("authz: invalid check declaration: %v", err))
		}
		checks = append(checks, check)
	}
	return checks
}
