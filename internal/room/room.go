package room

import (
	"context"

	"github.com/DoyleJ11/draft-sync-backend/internal/draft"
)

type Msg interface{ isRoomMsg() }

// SubmitAction asks the session to lock a champion into the next turn slot.
type SubmitAction struct {
	Index      int
	ChampionID string
	PlayerID   string
	Reply      chan error
}

// AmendPick swaps a previously locked champion for a new one. Index < 0 means
// "the submitting player's most recent performed action".
type AmendPick struct {
	Index      int
	ChampionID string
	PlayerID   string
	Reply      chan error
}

// AckSync records a client's acknowledgement of an applied action.
type AckSync struct {
	Index    int
	PlayerID string
	Reply    chan error
}

// ConfirmFinal records a whole-draft confirmation and reports quorum.
type ConfirmFinal struct {
	PlayerID string
	Reply    chan FinalReply
}

type FinalReply struct {
	Result draft.FinalConfirmation
	Err    error
}

type Cancel struct {
	Reply chan error
}

type GetSnapshot struct {
	Reply chan Snapshot
}

type GetConfirmations struct {
	Reply chan draft.ConfirmationStatus
}

// Join registers an observer; the current snapshot is sent immediately.
type Join struct {
	ClientID string
	Outbox   chan Snapshot
}

type Leave struct{ ClientID string }

type Shutdown struct{}

func (SubmitAction) isRoomMsg()     {}
func (AmendPick) isRoomMsg()        {}
func (AckSync) isRoomMsg()          {}
func (ConfirmFinal) isRoomMsg()     {}
func (Cancel) isRoomMsg()           {}
func (GetSnapshot) isRoomMsg()      {}
func (GetConfirmations) isRoomMsg() {}
func (Join) isRoomMsg()             {}
func (Leave) isRoomMsg()            {}
func (Shutdown) isRoomMsg()         {}

// Snapshot pairs the session projection with a monotonic version so clients
// can discard stale broadcasts after reconnect.
type Snapshot struct {
	Version int            `json:"version"`
	State   draft.Snapshot `json:"state"`
}

// Room is the actor owning one match's draft session. Every mutating
// operation flows through its inbox, which is what serializes per-match
// writes while leaving other matches uncontended. Callers go through the
// exported call methods, which bail out with a terminal error once the actor
// has shut down instead of blocking on a drained loop.
type Room struct {
	inbox      chan Msg
	sess       *draft.Session
	version    int
	clients    map[string]chan Snapshot
	onTerminal func(draft.Snapshot)
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewRoom starts the actor. onTerminal, if non-nil, fires once when the
// session first reaches a terminal state (used by the hub to archive).
func NewRoom(parent context.Context, sess *draft.Session, onTerminal func(draft.Snapshot)) *Room {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		inbox:      make(chan Msg, 64),
		sess:       sess,
		clients:    make(map[string]chan Snapshot),
		onTerminal: onTerminal,
		ctx:        ctx,
		cancel:     cancel,
	}
	go r.loop()
	return r
}

// call sends msg and waits for its reply, giving up at either step when the
// room has shut down. A message that raced into the inbox just before
// shutdown gets its answer from the ctx branch, never a hang.
func (r *Room) call(msg Msg, reply <-chan error) error {
	select {
	case r.inbox <- msg:
	case <-r.ctx.Done():
		return draft.ErrSessionTerminal
	}
	select {
	case err := <-reply:
		return err
	case <-r.ctx.Done():
		return draft.ErrSessionTerminal
	}
}

func (r *Room) Submit(index int, championID, playerID string) error {
	reply := make(chan error, 1)
	return r.call(SubmitAction{Index: index, ChampionID: championID, PlayerID: playerID, Reply: reply}, reply)
}

func (r *Room) Amend(index int, championID, playerID string) error {
	reply := make(chan error, 1)
	return r.call(AmendPick{Index: index, ChampionID: championID, PlayerID: playerID, Reply: reply}, reply)
}

func (r *Room) Ack(playerID string, index int) error {
	reply := make(chan error, 1)
	return r.call(AckSync{Index: index, PlayerID: playerID, Reply: reply}, reply)
}

func (r *Room) Final(playerID string) (draft.FinalConfirmation, error) {
	reply := make(chan FinalReply, 1)
	select {
	case r.inbox <- ConfirmFinal{PlayerID: playerID, Reply: reply}:
	case <-r.ctx.Done():
		return draft.FinalConfirmation{}, draft.ErrSessionTerminal
	}
	select {
	case fr := <-reply:
		return fr.Result, fr.Err
	case <-r.ctx.Done():
		return draft.FinalConfirmation{}, draft.ErrSessionTerminal
	}
}

func (r *Room) CancelMatch() error {
	reply := make(chan error, 1)
	return r.call(Cancel{Reply: reply}, reply)
}

// Snapshot reports ok=false once the room has shut down; callers map that to
// their not-found surface.
func (r *Room) Snapshot() (Snapshot, bool) {
	reply := make(chan Snapshot, 1)
	select {
	case r.inbox <- GetSnapshot{Reply: reply}:
	case <-r.ctx.Done():
		return Snapshot{}, false
	}
	select {
	case snap := <-reply:
		return snap, true
	case <-r.ctx.Done():
		return Snapshot{}, false
	}
}

func (r *Room) Confirmations() (draft.ConfirmationStatus, bool) {
	reply := make(chan draft.ConfirmationStatus, 1)
	select {
	case r.inbox <- GetConfirmations{Reply: reply}:
	case <-r.ctx.Done():
		return draft.ConfirmationStatus{}, false
	}
	select {
	case st := <-reply:
		return st, true
	case <-r.ctx.Done():
		return draft.ConfirmationStatus{}, false
	}
}

// Attach registers an observer outbox; false means the room is gone.
func (r *Room) Attach(clientID string, outbox chan Snapshot) bool {
	select {
	case r.inbox <- Join{ClientID: clientID, Outbox: outbox}:
		return true
	case <-r.ctx.Done():
		return false
	}
}

func (r *Room) Detach(clientID string) {
	select {
	case r.inbox <- Leave{ClientID: clientID}:
	case <-r.ctx.Done():
	}
}

// Close asks the actor to shut down; idempotent.
func (r *Room) Close() {
	select {
	case r.inbox <- Shutdown{}:
	case <-r.ctx.Done():
	}
}

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- Snapshot{Version: r.version, State: r.sess.Snapshot()}

			case Leave:
				delete(r.clients, msg.ClientID)

			case SubmitAction:
				err := r.sess.ProcessAction(msg.Index, msg.ChampionID, msg.PlayerID)
				msg.Reply <- err
				if err == nil {
					r.applied()
				}

			case AmendPick:
				var err error
				if msg.Index < 0 {
					err = r.sess.ChangePick(msg.PlayerID, msg.ChampionID)
				} else {
					err = r.sess.ChangePickAt(msg.Index, msg.PlayerID, msg.ChampionID)
				}
				msg.Reply <- err
				if err == nil {
					r.applied()
				}

			case AckSync:
				// No broadcast: acks are informational and would be noisy.
				msg.Reply <- r.sess.ConfirmSync(msg.PlayerID, msg.Index)

			case ConfirmFinal:
				res, err := r.sess.ConfirmFinal(msg.PlayerID)
				msg.Reply <- FinalReply{Result: res, Err: err}
				if err == nil {
					r.applied()
				}

			case Cancel:
				err := r.sess.Cancel()
				msg.Reply <- err
				if err == nil {
					r.applied()
				}

			case GetSnapshot:
				msg.Reply <- Snapshot{Version: r.version, State: r.sess.Snapshot()}

			case GetConfirmations:
				msg.Reply <- r.sess.Confirmations()

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

// applied runs after every successful mutation: bump the version, broadcast,
// and fire the terminal hook exactly once.
func (r *Room) applied() {
	r.version++
	r.broadcast(Snapshot{Version: r.version, State: r.sess.Snapshot()})

	if r.onTerminal != nil {
		st := r.sess.State()
		if st == draft.StateConfirmed || st == draft.StateCancelled {
			r.onTerminal(r.sess.Snapshot())
			r.onTerminal = nil
		}
	}
}

func (r *Room) broadcast(snap Snapshot) {
	for id, ch := range r.clients {
		select {
		case ch <- snap:
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(r.clients, id)
		}
	}
}

func (r *Room) shutdown() {
	for id, ch := range r.clients {
		close(ch)
		delete(r.clients, id)
	}
	r.cancel()
}
