package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/draft-sync-backend/internal/draft"
	"github.com/DoyleJ11/draft-sync-backend/internal/inbox"
)

// actionResult is the pass/fail surface for mutations. Rejections are
// expected outcomes (two clients racing for the same turn), so they travel as
// 200s with accepted=false, never as transport errors.
type actionResult struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// dedupedResult answers a retry that hit the inbox gate. It deliberately does
// not claim acceptance: the ledger only knows the event was seen before, not
// how the original application fared. Callers consult the snapshot.
type dedupedResult struct {
	Deduped bool `json:"deduped"`
}

type snapshotResponse struct {
	Exists  bool            `json:"exists"`
	Version int             `json:"version,omitempty"`
	State   *draft.Snapshot `json:"state,omitempty"`
}

func CreateMatch(deps Deps) http.HandlerFunc {
	type request struct {
		MatchID  string           `json:"match_id"`
		Schedule []draft.TurnSlot `json:"schedule"`
		Roster   []string         `json:"roster"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.MatchID == "" {
			req.MatchID = uuid.NewString()
		}

		cfg := draft.Config{MatchID: req.MatchID, Schedule: req.Schedule, Roster: req.Roster}
		if _, err := deps.Hub.Ensure(cfg); err != nil {
			writeJSON(w, http.StatusBadRequest, actionResult{Reason: draft.Reason(err)})
			return
		}

		writeJSON(w, http.StatusCreated, struct {
			MatchID string `json:"match_id"`
		}{MatchID: req.MatchID})
	}
}

func SubmitAction(deps Deps) http.HandlerFunc {
	type request struct {
		ActionIndex int    `json:"action_index"`
		ChampionID  string `json:"champion_id"`
		PlayerID    string `json:"player_id"`
		EventID     string `json:"event_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		matchID := chi.URLParam(r, "matchID")
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		rm := deps.Hub.Room(matchID)
		if rm == nil {
			writeJSON(w, http.StatusNotFound, snapshotResponse{})
			return
		}

		// Requests carrying a stable event id get true idempotent retry:
		// the duplicate never reaches the session. The gate runs after the
		// room lookup so a submission against a not-yet-created match is
		// not burned into the ledger, where it would swallow the retry
		// that arrives once the match exists.
		if req.EventID != "" {
			payload, _ := json.Marshal(req)
			novel, err := deps.Inbox.Record(r.Context(), inbox.Entry{
				EventID:   req.EventID,
				EventType: "draft.action",
				BackendID: deps.BackendID,
				MatchID:   matchID,
				Payload:   payload,
				ArrivedAt: time.Now().UTC(),
			})
			if err != nil {
				deps.Log.Error("inbox unreachable", zap.Error(err))
				http.Error(w, "inbox unavailable", http.StatusServiceUnavailable)
				return
			}
			if !novel {
				writeJSON(w, http.StatusOK, dedupedResult{Deduped: true})
				return
			}
		}

		writeResult(w, rm.Submit(req.ActionIndex, req.ChampionID, req.PlayerID))
	}
}

func ChangePick(deps Deps) http.HandlerFunc {
	type request struct {
		PlayerID    string `json:"player_id"`
		ChampionID  string `json:"champion_id"`
		ActionIndex *int   `json:"action_index"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		rm := deps.Hub.Room(chi.URLParam(r, "matchID"))
		if rm == nil {
			writeJSON(w, http.StatusNotFound, snapshotResponse{})
			return
		}

		index := -1
		if req.ActionIndex != nil {
			index = *req.ActionIndex
		}
		writeResult(w, rm.Amend(index, req.ChampionID, req.PlayerID))
	}
}

func ConfirmSync(deps Deps) http.HandlerFunc {
	type request struct {
		PlayerID    string `json:"player_id"`
		ActionIndex int    `json:"action_index"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		rm := deps.Hub.Room(chi.URLParam(r, "matchID"))
		if rm == nil {
			writeJSON(w, http.StatusNotFound, snapshotResponse{})
			return
		}

		if err := rm.Ack(req.PlayerID, req.ActionIndex); err != nil {
			writeJSON(w, http.StatusOK, struct {
				Acknowledged bool   `json:"acknowledged"`
				Reason       string `json:"reason,omitempty"`
			}{Acknowledged: false, Reason: draft.Reason(err)})
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Acknowledged bool `json:"acknowledged"`
		}{Acknowledged: true})
	}
}

func ConfirmFinal(deps Deps) http.HandlerFunc {
	type request struct {
		PlayerID string `json:"player_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		rm := deps.Hub.Room(chi.URLParam(r, "matchID"))
		if rm == nil {
			writeJSON(w, http.StatusNotFound, snapshotResponse{})
			return
		}

		res, err := rm.Final(req.PlayerID)
		if err != nil {
			writeResult(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func CancelMatch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm := deps.Hub.Room(chi.URLParam(r, "matchID"))
		if rm == nil {
			writeJSON(w, http.StatusNotFound, snapshotResponse{})
			return
		}

		if err := rm.CancelMatch(); err != nil {
			writeJSON(w, http.StatusOK, struct {
				Cancelled bool   `json:"cancelled"`
				Reason    string `json:"reason,omitempty"`
			}{Cancelled: false, Reason: draft.Reason(err)})
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Cancelled bool `json:"cancelled"`
		}{Cancelled: true})
	}
}

func GetSnapshot(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm := deps.Hub.Room(chi.URLParam(r, "matchID"))
		if rm == nil {
			writeJSON(w, http.StatusNotFound, snapshotResponse{})
			return
		}

		snap, ok := rm.Snapshot()
		if !ok {
			writeJSON(w, http.StatusNotFound, snapshotResponse{})
			return
		}
		writeJSON(w, http.StatusOK, snapshotResponse{Exists: true, Version: snap.Version, State: &snap.State})
	}
}

func GetConfirmations(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm := deps.Hub.Room(chi.URLParam(r, "matchID"))
		if rm == nil {
			writeJSON(w, http.StatusNotFound, snapshotResponse{})
			return
		}

		st, ok := rm.Confirmations()
		if !ok {
			writeJSON(w, http.StatusNotFound, snapshotResponse{})
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeResult(w http.ResponseWriter, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, actionResult{Accepted: true})
		return
	}
	status := http.StatusOK
	if errors.Is(err, draft.ErrBadInput) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, actionResult{Accepted: false, Reason: draft.Reason(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
