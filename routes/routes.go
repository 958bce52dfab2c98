package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/openbracket/tournament-engine/handlers"
	"github.com/openbracket/tournament-engine/metrics"
	"github.com/openbracket/tournament-engine/middleware"
	"github.com/openbracket/tournament-engine/models"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth        *handlers.AuthHandler
	Tournament  *handlers.TournamentHandler
	Stage       *handlers.StageHandler
	Group       *handlers.GroupHandler
	Participant *handlers.ParticipantHandler
	Match       *handlers.MatchHandler
	Bracket     *handlers.BracketHandler
	Draw        *handlers.DrawHandler
	Standings   *handlers.StandingsHandler
	WebSocket   *handlers.WebSocketHandler
}

// InitRoutes builds the router. Reads are open to any authenticated operator;
// everything that mutates tournament state is admin-only.
func InitRoutes(h Handlers, jwtSecret []byte) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(middleware.RequestMetrics)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Handle("/metrics", metrics.Handler())

	router.Post("/auth/register", h.Auth.RegisterHandler)
	router.Post("/auth/login", h.Auth.LoginHandler)

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	authenticated := middleware.Authenticator(jwtSecret)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	router.Group(func(r chi.Router) {
		r.Use(authenticated)

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", h.Tournament.ListHandler)
			r.Get("/{tournamentID}", h.Tournament.GetByIDHandler)
			r.Get("/{tournamentID}/stages", h.Stage.ListHandler)
			r.Get("/{tournamentID}/participants", h.Participant.ListHandler)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Post("/", h.Tournament.CreateHandler)
				r.Patch("/{tournamentID}/status", h.Tournament.UpdateStatusHandler)
				r.Patch("/{tournamentID}/participants-lock", h.Tournament.LockParticipantsHandler)
				r.Post("/{tournamentID}/stages", h.Stage.CreateHandler)
				r.Post("/{tournamentID}/participants", h.Participant.CreateHandler)
			})
		})

		r.Route("/stages", func(r chi.Router) {
			r.Get("/{stageID}", h.Stage.GetByIDHandler)
			r.Get("/{stageID}/rule", h.Stage.GetRuleHandler)
			r.Get("/{stageID}/groups", h.Group.ListHandler)
			r.Get("/{stageID}/matches", h.Match.ListByStageHandler)
			r.Get("/{stageID}/bracket", h.Bracket.GetViewHandler)
			r.Get("/{stageID}/standings", h.Standings.ForStageHandler)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Patch("/{stageID}", h.Stage.UpdateHandler)
				r.Delete("/{stageID}", h.Stage.DeleteHandler)
				r.Put("/{stageID}/rule", h.Stage.SetRuleHandler)
				r.Delete("/{stageID}/rule", h.Stage.DeleteRuleHandler)
				r.Post("/{stageID}/groups", h.Group.CreateHandler)
				r.Post("/{stageID}/groups/auto-generate", h.Group.AutoGenerateHandler)
				r.Post("/{stageID}/groups/assign-by-seeding", h.Group.AssignBySeedingHandler)
				r.Post("/{stageID}/matches/round-robin", h.Group.GenerateRoundRobinHandler)
				r.Post("/{stageID}/bracket", h.Bracket.GenerateHandler)
				r.Post("/{stageID}/bracket/resolve", h.Bracket.ResolveHandler)
				r.Post("/{stageID}/bracket/publish", h.Bracket.PublishHandler)
				r.Delete("/{stageID}/bracket/publish", h.Bracket.UnpublishHandler)
			})
		})

		r.Route("/groups", func(r chi.Router) {
			r.Get("/{groupID}", h.Group.GetByIDHandler)
			r.Get("/{groupID}/members", h.Group.ListMembersHandler)
			r.Get("/{groupID}/matches", h.Match.ListByGroupHandler)
			r.Get("/{groupID}/standings", h.Standings.ForGroupHandler)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Patch("/{groupID}", h.Group.UpdateHandler)
				r.Delete("/{groupID}", h.Group.DeleteHandler)
				r.Post("/{groupID}/members", h.Group.AddMemberHandler)
				r.Patch("/{groupID}/members/{participantID}", h.Group.UpdateMemberHandler)
				r.Delete("/{groupID}/members/{participantID}", h.Group.RemoveMemberHandler)
			})
		})

		r.Route("/participants", func(r chi.Router) {
			r.Get("/{participantID}", h.Participant.GetByIDHandler)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Patch("/{participantID}/seed", h.Participant.UpdateSeedHandler)
				r.Patch("/{participantID}/status", h.Participant.UpdateStatusHandler)
				r.Delete("/{participantID}", h.Participant.DeleteHandler)
			})
		})

		r.Route("/matches", func(r chi.Router) {
			r.Get("/{matchID}", h.Match.GetByIDHandler)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Post("/{matchID}/result", h.Match.RecordResultHandler)
				r.Post("/{matchID}/cancel", h.Match.CancelHandler)
				r.Delete("/{matchID}", h.Match.DeleteHandler)
			})
		})

		r.Route("/draw-sessions", func(r chi.Router) {
			r.Get("/", h.Draw.ListHandler)
			r.Get("/{sessionID}", h.Draw.GetHandler)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Post("/", h.Draw.CreateHandler)
				r.Patch("/{sessionID}", h.Draw.UpdateHandler)
				r.Post("/{sessionID}/apply", h.Draw.ApplyHandler)
			})
		})
	})

	return router
}
