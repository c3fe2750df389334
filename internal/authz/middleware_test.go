package authz

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/helios-crm/helios-crm/internal/shared"
)

func sessionFor(userID int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := &shared.Session{ID: "test"}
			if userID != 0 {
				sess.SetUser(strconv.FormatInt(userID, 10))
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithSession(r.Context(), sess)))
		})
	}
}

func newGate(t *testing.T, principals map[int64]*Principal) Middleware {
	t.Helper()
	store := newMemoryStore()
	for id, p := range principals {
		store.principals[id] = p
	}
	return Middleware{Service: NewService(store, nil, nil)}
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func TestMiddlewareRequireAny(t *testing.T) {
	gate := newGate(t, map[int64]*Principal{
		1: principalWith(1, "Sales", Permission{Resource: ResourceLead, Action: ActionRead}),
	})

	r := chi.NewRouter()
	r.Use(sessionFor(1))
	r.With(gate.RequireAny("lead:read")).Get("/leads", okHandler)
	r.With(gate.RequireAny("lead:delete", "lead:read")).Get("/either", okHandler)
	r.With(gate.RequireAny("lead:delete")).Get("/denied", okHandler)
	r.With(gate.RequireAny()).Get("/open", okHandler)

	for path, want := range map[string]int{
		"/leads":  http.StatusOK,
		"/either": http.StatusOK,
		"/denied": http.StatusForbidden,
		"/open":   http.StatusOK,
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, want, rec.Code, path)
	}
}

func TestMiddlewareRequireAll(t *testing.T) {
	gate := newGate(t, map[int64]*Principal{
		1: principalWith(1, "Sales",
			Permission{Resource: ResourceLead, Action: ActionRead},
			Permission{Resource: ResourceDeal, Action: ActionCreate}),
	})

	r := chi.NewRouter()
	r.Use(sessionFor(1))
	r.With(gate.RequireAll("deal:create", "lead:read")).Post("/convert", okHandler)
	r.With(gate.RequireAll("deal:create", "lead:update")).Post("/partial", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/convert", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/partial", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMiddlewareUnauthenticated(t *testing.T) {
	gate := newGate(t, nil)

	r := chi.NewRouter()
	r.Use(sessionFor(0))
	r.With(gate.RequireAny("lead:read")).Get("/leads", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leads", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareNoSession(t *testing.T) {
	gate := newGate(t, nil)

	r := chi.NewRouter()
	r.With(gate.RequireAny("lead:read")).Get("/leads", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leads", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareInjectsPrincipalID(t *testing.T) {
	gate := newGate(t, map[int64]*Principal{
		7: principalWith(7, RoleSuperAdmin),
	})

	var got int64
	r := chi.NewRouter()
	r.Use(sessionFor(7))
	r.With(gate.RequireAny("lead:read")).Get("/leads", func(w http.ResponseWriter, req *http.Request) {
		got, _ = shared.PrincipalIDFromContext(req.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leads", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(7), got)
}

func TestMiddlewareMalformedCheckPanics(t *testing.T) {
	gate := newGate(t, nil)
	require.Panics(t, func() {
		gate.RequireAny("lead")
	})
	require.Panics(t, func() {
		gate.RequireAll("spaceship:read")
	})
}
