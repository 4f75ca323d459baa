// Package app assembles the HTTP surface: repositories, the ledger engine,
// the settlement and lobby services, and the chi router.
package app

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matchpoint/arena/internal/auth"
	"github.com/matchpoint/arena/internal/handler"
	"github.com/matchpoint/arena/internal/infra"
	"github.com/matchpoint/arena/internal/ledger"
	"github.com/matchpoint/arena/internal/projection"
	"github.com/matchpoint/arena/internal/repository"
	"github.com/matchpoint/arena/internal/service"
	"github.com/matchpoint/arena/internal/settlement"
)

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	Pool        *pgxpool.Pool
	JWTMgr      *auth.JWTManager
	Broadcaster *infra.Broadcaster
	Cache       projection.Store
	CORSOrigins string
	Logger      *slog.Logger
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	pool := deps.Pool
	logger := deps.Logger

	// Repositories
	userRepo := repository.NewUserRepository()
	lobbyRepo := repository.NewLobbyRepository()
	txRepo := repository.NewTransactionRepository()
	outboxRepo := repository.NewOutboxRepository()

	// Ledger + settlement
	ledgerEngine := ledger.NewEngine(userRepo, txRepo, outboxRepo)
	settler := settlement.NewSettler(pool, ledgerEngine, deps.Cache, logger)

	// Services
	lobbySvc := service.NewLobbyService(pool, lobbyRepo, userRepo, outboxRepo, settler, deps.Broadcaster, logger)
	walletSvc := service.NewWalletService(pool, userRepo, txRepo, deps.Cache)

	// Handlers
	lobbyHandler := handler.NewLobbyHandler(lobbySvc)
	walletHandler := handler.NewWalletHandler(walletSvc)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORSWithOrigins(deps.CORSOrigins))
	r.Use(handler.JSONContentType)

	// Health (no auth)
	r.Get("/health", handler.HealthHandler(pool))

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(deps.JWTMgr))

		r.Get("/session", lobbyHandler.Session)

		r.Route("/lobbies", func(r chi.Router) {
			r.Get("/", lobbyHandler.List)
			r.Post("/", lobbyHandler.Create)

			r.Route("/{lobbyID}", func(r chi.Router) {
				r.Get("/", lobbyHandler.Get)
				r.Delete("/", lobbyHandler.Delete)
				r.Post("/join", lobbyHandler.Join)
				r.Post("/occupy", lobbyHandler.Occupy)
				r.Post("/vacate", lobbyHandler.Vacate)
				r.Post("/leave", lobbyHandler.Leave)
				r.Post("/kick", lobbyHandler.Kick)
				r.Post("/ready", lobbyHandler.Ready)
				r.Post("/start", lobbyHandler.Start)
				r.Post("/winner", lobbyHandler.DeclareWinner)
				r.Post("/chat", lobbyHandler.Chat)
				r.Get("/settlement", walletHandler.GetLobbySettlement)
			})
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/balance", walletHandler.GetBalance)
			r.Get("/transactions", walletHandler.GetTransactions)
		})
	})

	return r
}

// NewLobbyService exposes the wired lobby service for background jobs that
// live outside the router (finished-lobby purge).
func NewLobbyService(pool *pgxpool.Pool, broadcaster *infra.Broadcaster, cache projection.Store, logger *slog.Logger) *service.LobbyService {
	userRepo := repository.NewUserRepository()
	lobbyRepo := repository.NewLobbyRepository()
	txRepo := repository.NewTransactionRepository()
	outboxRepo := repository.NewOutboxRepository()
	ledgerEngine := ledger.NewEngine(userRepo, txRepo, outboxRepo)
	settler := settlement.NewSettler(pool, ledgerEngine, cache, logger)
	return service.NewLobbyService(pool, lobbyRepo, userRepo, outboxRepo, settler, broadcaster, logger)
}
