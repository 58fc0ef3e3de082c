package hub

import (
	"context"

	"github.com/DoyleJ11/draft-sync-backend/internal/draft"
	"github.com/DoyleJ11/draft-sync-backend/internal/room"
)

type HubMsg interface{ isHubMsg() }

// EnsureRoom creates the room for a match if it doesn't exist yet. Creation
// is idempotent: a second Ensure with the same match id returns the existing
// room untouched, which keeps duplicate create events harmless.
type EnsureRoom struct {
	Config draft.Config
	Reply  chan EnsureReply
}

type EnsureReply struct {
	Room *room.Room
	Err  error
}

type GetRoom struct {
	MatchID string
	Reply   chan *room.Room
}

type RemoveRoom struct {
	MatchID string
}

type ShutdownHub struct{}

func (EnsureRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// Archiver receives the final snapshot of a session that reached a terminal
// state. The hub calls it off the room's goroutine.
type Archiver interface {
	Archive(snap draft.Snapshot)
}

type Hub struct {
	inbox    chan HubMsg
	rooms    map[string]*room.Room
	archiver Archiver
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, archiver Archiver) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		rooms:    make(map[string]*room.Room),
		archiver: archiver,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Room looks up the room for a match. Returns nil when the match is unknown;
// callers map that to their not-found surface.
func (h *Hub) Room(matchID string) *room.Room {
	reply := make(chan *room.Room, 1)
	h.inbox <- GetRoom{MatchID: matchID, Reply: reply}
	return <-reply
}

// Ensure creates (or returns) the room for the given session config.
func (h *Hub) Ensure(cfg draft.Config) (*room.Room, error) {
	reply := make(chan EnsureReply, 1)
	h.inbox <- EnsureRoom{Config: cfg, Reply: reply}
	r := <-reply
	return r.Room, r.Err
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureRoom:
				if rm := h.rooms[msg.Config.MatchID]; rm != nil {
					msg.Reply <- EnsureReply{Room: rm}
					break
				}
				sess, err := draft.NewSession(msg.Config)
				if err != nil {
					msg.Reply <- EnsureReply{Err: err}
					break
				}
				rm := room.NewRoom(h.ctx, sess, h.terminalHook())
				h.rooms[msg.Config.MatchID] = rm
				msg.Reply <- EnsureReply{Room: rm}

			case GetRoom:
				msg.Reply <- h.rooms[msg.MatchID] // May be nil

			case RemoveRoom:
				if rm := h.rooms[msg.MatchID]; rm != nil {
					rm.Close()
					delete(h.rooms, msg.MatchID)
				}

			case ShutdownHub:
				for _, rm := range h.rooms {
					rm.Close()
				}
				clear(h.rooms)
				h.cancel()
			}
		}
	}
}

// terminalHook hands terminal snapshots to the archiver without blocking the
// room actor on storage I/O. The room stays registered after the hook so that
// late operations surface "session terminal" rather than "not found";
// retention is an external policy driving RemoveRoom.
func (h *Hub) terminalHook() func(draft.Snapshot) {
	if h.archiver == nil {
		return nil
	}
	return func(snap draft.Snapshot) {
		go h.archiver.Archive(snap)
	}
}
