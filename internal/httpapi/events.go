package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/draft-sync-backend/internal/draft"
	"github.com/DoyleJ11/draft-sync-backend/internal/inbox"
)

// Event types the ingest endpoint knows how to apply. Anything else is
// recorded in the ledger and acknowledged without effects.
const (
	evtCreate       = "draft.create"
	evtAction       = "draft.action"
	evtChangePick   = "draft.change_pick"
	evtConfirmSync  = "draft.confirm_sync"
	evtConfirmFinal = "draft.confirm_final"
	evtCancel       = "draft.cancel"
)

type ingestRequest struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	BackendID string          `json:"backend_id"`
	MatchID   string          `json:"match_id"`
	Payload   json.RawMessage `json:"payload"`
}

type ingestResponse struct {
	EventID string `json:"event_id"`
	Deduped bool   `json:"deduped"`
}

// IngestEvent is the fleet-shared event channel's entry point. The inbox gate
// runs before any effect; of N instances (or retries) delivering the same
// event id, exactly one applies it. The application result is not part of the
// acknowledgement: a relayed action that loses its race is rejected the same
// way a direct submission would be, and stays recorded.
func IngestEvent(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ingestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.EventType == "" {
			http.Error(w, "missing event_type", http.StatusBadRequest)
			return
		}
		if req.BackendID == "" {
			req.BackendID = deps.BackendID
		}
		req.EventID = inbox.EnsureEventID(req.EventID)

		novel, err := deps.Inbox.Record(r.Context(), inbox.Entry{
			EventID:   req.EventID,
			EventType: req.EventType,
			BackendID: req.BackendID,
			MatchID:   req.MatchID,
			Payload:   req.Payload,
			ArrivedAt: time.Now().UTC(),
		})
		if err != nil {
			deps.Log.Error("inbox unreachable", zap.Error(err))
			http.Error(w, "inbox unavailable", http.StatusServiceUnavailable)
			return
		}
		if !novel {
			writeJSON(w, http.StatusOK, ingestResponse{EventID: req.EventID, Deduped: true})
			return
		}

		applyEvent(deps, req)
		writeJSON(w, http.StatusOK, ingestResponse{EventID: req.EventID})
	}
}

func applyEvent(deps Deps, req ingestRequest) {
	log := deps.Log.With(zap.String("event_id", req.EventID), zap.String("event_type", req.EventType))

	if req.EventType == evtCreate {
		var p struct {
			MatchID  string           `json:"match_id"`
			Schedule []draft.TurnSlot `json:"schedule"`
			Roster   []string         `json:"roster"`
		}
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			log.Warn("undecodable event payload", zap.Error(err))
			return
		}
		if p.MatchID == "" {
			p.MatchID = req.MatchID
		}
		if _, err := deps.Hub.Ensure(draft.Config{MatchID: p.MatchID, Schedule: p.Schedule, Roster: p.Roster}); err != nil {
			log.Warn("draft create event rejected", zap.Error(err))
		}
		return
	}

	rm := deps.Hub.Room(req.MatchID)
	if rm == nil {
		log.Warn("event for unknown match", zap.String("match_id", req.MatchID))
		return
	}

	// ActionIndex is a pointer so change-pick can distinguish "amend the
	// player's latest action" (absent) from an explicit index 0.
	var p struct {
		ActionIndex *int   `json:"action_index"`
		ChampionID  string `json:"champion_id"`
		PlayerID    string `json:"player_id"`
	}
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			log.Warn("undecodable event payload", zap.Error(err))
			return
		}
	}
	index := func(fallback int) int {
		if p.ActionIndex != nil {
			return *p.ActionIndex
		}
		return fallback
	}

	switch req.EventType {
	case evtAction:
		logRejection(log, rm.Submit(index(0), p.ChampionID, p.PlayerID))

	case evtChangePick:
		logRejection(log, rm.Amend(index(-1), p.ChampionID, p.PlayerID))

	case evtConfirmSync:
		logRejection(log, rm.Ack(p.PlayerID, index(0)))

	case evtConfirmFinal:
		_, err := rm.Final(p.PlayerID)
		logRejection(log, err)

	case evtCancel:
		logRejection(log, rm.CancelMatch())

	default:
		// Recorded for dedup, nothing to apply.
	}
}

// logRejection keeps rejected relayed actions at debug: losing a race is the
// normal case under at-least-once fan-in, not an incident.
func logRejection(log *zap.Logger, err error) {
	if err != nil {
		log.Debug("relayed event rejected", zap.String("reason", draft.Reason(err)))
	}
}
