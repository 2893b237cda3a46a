// Package http is the JSON API surface over the ledger services. Handlers
// stay thin: decode, call the service, map the error taxonomy to a status.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/middleware/ratelimit"
	"tally/internal/middleware/trace"
	"tally/internal/services"
)

type contextKey string

const ownerContextKey contextKey = "owner"

// Authenticator resolves an API key to an owner.
type Authenticator interface {
	Authenticate(ctx context.Context, apiKey string) (core.Owner, error)
}

// StoreAuthenticator authenticates against the owner table.
type StoreAuthenticator struct {
	Store services.OwnerStore
}

func (a StoreAuthenticator) Authenticate(ctx context.Context, apiKey string) (core.Owner, error) {
	if apiKey == "" {
		return core.Owner{}, fmt.Errorf("%w: missing api key", core.ErrUnauthorized)
	}
	owner, err := a.Store.OwnerByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Owner{}, fmt.Errorf("%w: unknown api key", core.ErrUnauthorized)
		}
		return core.Owner{}, err
	}
	return owner, nil
}

type Server struct {
	http.Server

	store        services.Store
	accounts     *services.AccountService
	transactions *services.TransactionService
	auth         Authenticator
	views        *cache.ViewCache
	limiter      *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer wires the routes and middleware, returning a ready-to-run server.
// The view cache is shared with the services so mutations can invalidate
// cached dashboards.
func NewServer(addr string, store services.Store, accounts *services.AccountService, transactions *services.TransactionService, auth Authenticator, views *cache.ViewCache) *Server {
	mux := http.NewServeMux()

	if views == nil {
		views = cache.NewViewCache(256, 5*time.Minute)
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		store:        store,
		accounts:     accounts,
		transactions: transactions,
		auth:         auth,
		views:        views,
		limiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}

	mux.HandleFunc("GET /healthz", handleHealth)

	mux.HandleFunc("POST /api/accounts", s.authed(s.handleCreateAccount))
	mux.HandleFunc("GET /api/accounts", s.authed(s.handleListAccounts))
	mux.HandleFunc("GET /api/accounts/{id}", s.authed(s.handleGetAccount))
	mux.HandleFunc("POST /api/accounts/{id}/default", s.authed(s.handleSetDefaultAccount))
	mux.HandleFunc("DELETE /api/accounts/{id}", s.authed(s.handleDeleteAccount))

	mux.HandleFunc("POST /api/transactions", s.authed(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions", s.authed(s.handleListTransactions))
	mux.HandleFunc("GET /api/transactions/{id}", s.authed(s.handleGetTransaction))
	mux.HandleFunc("PATCH /api/transactions/{id}", s.authed(s.handleUpdateTransaction))
	mux.HandleFunc("POST /api/transactions/delete", s.authed(s.handleDeleteTransactions))

	mux.HandleFunc("GET /api/dashboard", s.authed(s.handleDashboard))
	mux.HandleFunc("GET /api/budget", s.authed(s.handleGetBudget))
	mux.HandleFunc("PUT /api/budget", s.authed(s.handleUpsertBudget))
	mux.HandleFunc("POST /api/receipts/scan", s.authed(s.handleScanReceipt))

	traced := trace.NewMiddleware(trace.RemoteIP)
	limited := s.limiter.Middleware(trace.RemoteIP, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
	})
	s.Server.Handler = traced.Middleware(limitMutations(limited, mux))

	return s
}

// limitMutations applies the rate limiter to mutating methods only.
func limitMutations(limited func(http.Handler) http.Handler, next http.Handler) http.Handler {
	guarded := limited(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			guarded.ServeHTTP(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// authed resolves the X-API-Key header to an owner and puts it on the
// context.
func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := s.auth.Authenticate(r.Context(), r.Header.Get("X-API-Key"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), ownerContextKey, owner)
		next(w, r.WithContext(ctx))
	}
}

func ownerFrom(r *http.Request) core.Owner {
	owner, _ := r.Context().Value(ownerContextKey).(core.Owner)
	return owner
}

// Shutdown stops the HTTP server and the limiter's cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
