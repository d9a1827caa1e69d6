package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/haruchi-os/haruchi-sync/internal/app/game"
	"github.com/haruchi-os/haruchi-sync/internal/infra/observability"
)

// ─── Game API ───────────────────────────────────────────────────────────────
// GET /api/game — current XP summary for the widget:
//
//	{"totalXP": 110, "level": 2, "exp": 10, "maxExp": 100}
//
// The widget renders whatever it gets, so failures still carry a full
// summary (zeroed, level 1) next to the error fields.

// GameAPI serves the XP summary.
type GameAPI struct {
	svc *game.Service // nil when the ledger is not configured
	log *zap.Logger
}

// NewGameAPI creates the game endpoint handler. svc may be nil when the
// ledger collection or profile is not configured; the endpoint then serves
// a degraded default payload.
func NewGameAPI(svc *game.Service, log *zap.Logger) *GameAPI {
	if log == nil {
		log = zap.NewNop()
	}
	return &GameAPI{svc: svc, log: log.Named("api")}
}

// errorSummary is the degraded payload: a default summary plus error fields.
type errorSummary struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	game.Summary
}

func defaultSummary() game.Summary {
	return game.Summary{Level: 1, MaxExp: game.XPPerLevel}
}

// HandleGame returns the current XP summary.
// GET /api/game
func (g *GameAPI) HandleGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		observability.GameRequests.WithLabelValues("method_not_allowed").Inc()
		writeJSON(w, http.StatusMethodNotAllowed, errorSummary{
			Error:   "Method Not Allowed",
			Summary: defaultSummary(),
		})
		return
	}

	if g.svc == nil {
		observability.GameRequests.WithLabelValues("unconfigured").Inc()
		writeJSON(w, http.StatusInternalServerError, errorSummary{
			Error:   "Server configuration missing",
			Message: "ledger collection or profile id not configured",
			Summary: defaultSummary(),
		})
		return
	}

	summary, err := g.svc.Summary(r.Context())
	if err != nil {
		observability.GameRequests.WithLabelValues("error").Inc()
		g.log.Warn("game summary failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorSummary{
			Error:   "Failed to fetch game data",
			Message: err.Error(),
			Summary: defaultSummary(),
		})
		return
	}

	observability.GameRequests.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, summary)
}
