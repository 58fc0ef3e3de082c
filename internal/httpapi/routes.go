package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/draft-sync-backend/internal/hub"
	"github.com/DoyleJ11/draft-sync-backend/internal/inbox"
	"github.com/DoyleJ11/draft-sync-backend/internal/ws"
)

// Deps is everything the handlers close over.
type Deps struct {
	Hub       *hub.Hub
	Inbox     inbox.Store
	BackendID string
	Log       *zap.Logger
}

func SetupRoutes(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Post("/matches", CreateMatch(deps))
	r.Post("/events", IngestEvent(deps))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(deps.Hub))

	r.Route("/matches/{matchID}", func(r chi.Router) {
		r.Get("/", GetSnapshot(deps))
		r.Get("/confirmations", GetConfirmations(deps))
		r.Post("/actions", SubmitAction(deps))
		r.Post("/pick-change", ChangePick(deps))
		r.Post("/sync-confirmations", ConfirmSync(deps))
		r.Post("/final-confirmations", ConfirmFinal(deps))
		r.Post("/cancel", CancelMatch(deps))
	})
	return r
}
