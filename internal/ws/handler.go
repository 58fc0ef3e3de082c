package ws

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/DoyleJ11/draft-sync-backend/internal/draft"
	"github.com/DoyleJ11/draft-sync-backend/internal/hub"
	"github.com/DoyleJ11/draft-sync-backend/internal/room"
	"github.com/DoyleJ11/draft-sync-backend/internal/types"
)

// Handler attaches a client to a match room: versioned snapshots flow out,
// draft commands flow in. Rejections come back as Error frames with the
// taxonomy code; applied mutations show up through the snapshot broadcast.
func Handler(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID := r.URL.Query().Get("match")
		if matchID == "" {
			http.Error(w, "missing match", http.StatusBadRequest)
			return
		}

		rm := h.Room(matchID)
		if rm == nil {
			http.Error(w, "match not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan room.Snapshot, 8)
		clientID := randID(6)

		if !rm.Attach(clientID, out) {
			return
		}
		defer rm.Detach(clientID)

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				msg := types.ServerMessage{Type: "StateSnapshot", Version: snap.Version, State: &snap.State}
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = writeMsg(ctx, conn, msg)
				cancel()
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = writeMsg(r.Context(), conn, types.ServerMessage{Type: "Error", Error: "bad json"})
				continue
			}

			if reply := dispatch(rm, cm); reply != nil {
				_ = writeMsg(r.Context(), conn, *reply)
			}
		}
	}
}

// dispatch forwards one client command to the room and builds the direct
// reply frame, nil when the snapshot broadcast says everything.
func dispatch(rm *room.Room, cm types.ClientMessage) *types.ServerMessage {
	switch cm.Type {
	case "SubmitAction":
		return errFrame(rm.Submit(cm.ActionIndex, cm.ChampionID, cm.PlayerID))

	case "ChangePick":
		return errFrame(rm.Amend(-1, cm.ChampionID, cm.PlayerID))

	case "ConfirmSync":
		return errFrame(rm.Ack(cm.PlayerID, cm.ActionIndex))

	case "ConfirmFinal":
		res, err := rm.Final(cm.PlayerID)
		if err != nil {
			return errFrame(err)
		}
		return &types.ServerMessage{Type: "FinalConfirmation", Confirmation: &res}

	default:
		return &types.ServerMessage{Type: "Error", Error: "unknown type"}
	}
}

func errFrame(err error) *types.ServerMessage {
	if err == nil {
		return nil
	}
	return &types.ServerMessage{Type: "Error", Error: draft.Reason(err)}
}

func writeMsg(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, payload)
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
