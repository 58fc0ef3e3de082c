package draft

import (
	"errors"
	"fmt"
	"sort"
)

var ErrWrongTurn = errors.New("action out of turn")
var ErrDuplicateChampion = errors.New("champion already used")
var ErrWrongPhase = errors.New("wrong draft phase")
var ErrSessionTerminal = errors.New("session already finished")
var ErrUnknownPlayer = errors.New("player not on roster")
var ErrBadInput = errors.New("invalid request")

type State string

const (
	StateInProgress    State = "in_progress"
	StateAwaitingFinal State = "awaiting_final_confirmation"
	StateConfirmed     State = "confirmed"
	StateCancelled     State = "cancelled"
)

type Kind string

const (
	KindPick Kind = "pick"
	KindBan  Kind = "ban"
)

// TurnSlot is one step in the predetermined turn order: which player acts
// and whether they pick or ban.
type TurnSlot struct {
	PlayerID string `json:"player_id"`
	Kind     Kind   `json:"kind"`
}

// Action is one slot of the turn order plus whatever has been locked into it.
type Action struct {
	Index      int    `json:"index"`
	PlayerID   string `json:"player_id"`
	Kind       Kind   `json:"kind"`
	ChampionID string `json:"champion_id,omitempty"`
	Performed  bool   `json:"performed"`
}

// Config is the externally supplied session configuration. The schedule and
// roster come from whatever system put the match into its draft phase; this
// package never invents either.
type Config struct {
	MatchID  string
	Schedule []TurnSlot
	// Roster is optional; when empty it is derived as the distinct players
	// appearing in the schedule.
	Roster []string
}

// Session is the authoritative draft state for one match. It is not safe for
// concurrent use; the owning room actor serializes access.
type Session struct {
	matchID string
	state   State
	actions []Action
	next    int

	// championID -> index of the action holding it
	used map[string]int

	roster   map[string]struct{}
	syncAcks map[string]int
	finals   map[string]struct{}
}

func NewSession(cfg Config) (*Session, error) {
	if cfg.MatchID == "" {
		return nil, fmt.Errorf("%w: match id required", ErrBadInput)
	}
	if len(cfg.Schedule) == 0 {
		return nil, fmt.Errorf("%w: empty turn schedule", ErrBadInput)
	}

	s := &Session{
		matchID:  cfg.MatchID,
		state:    StateInProgress,
		actions:  make([]Action, len(cfg.Schedule)),
		used:     make(map[string]int),
		roster:   make(map[string]struct{}),
		syncAcks: make(map[string]int),
		finals:   make(map[string]struct{}),
	}

	for i, slot := range cfg.Schedule {
		if slot.PlayerID == "" {
			return nil, fmt.Errorf("%w: schedule slot %d has no player", ErrBadInput, i)
		}
		if slot.Kind != KindPick && slot.Kind != KindBan {
			return nil, fmt.Errorf("%w: schedule slot %d has kind %q", ErrBadInput, i, slot.Kind)
		}
		s.actions[i] = Action{Index: i, PlayerID: slot.PlayerID, Kind: slot.Kind}
	}

	if len(cfg.Roster) > 0 {
		for _, p := range cfg.Roster {
			s.roster[p] = struct{}{}
		}
		for _, slot := range cfg.Schedule {
			if _, ok := s.roster[slot.PlayerID]; !ok {
				return nil, fmt.Errorf("%w: scheduled player %q not on roster", ErrBadInput, slot.PlayerID)
			}
		}
	} else {
		for _, slot := range cfg.Schedule {
			s.roster[slot.PlayerID] = struct{}{}
		}
	}

	return s, nil
}

func (s *Session) MatchID() string { return s.matchID }
func (s *Session) State() State    { return s.state }

func (s *Session) terminal() bool {
	return s.state == StateConfirmed || s.state == StateCancelled
}

// ProcessAction locks championID into the action at index, submitted by
// playerID. Validation order: session phase, ordering, turn ownership,
// champion uniqueness. Nothing is mutated on failure.
//
// A verbatim resubmit of an already-applied action fails the ordering check
// (the index is no longer next); callers wanting a true idempotent retry must
// route the submission through the event inbox with a stable event id.
func (s *Session) ProcessAction(index int, championID, playerID string) error {
	if s.terminal() {
		return ErrSessionTerminal
	}
	if s.state != StateInProgress {
		return ErrWrongPhase
	}
	if championID == "" || playerID == "" {
		return fmt.Errorf("%w: champion and player required", ErrBadInput)
	}
	if index != s.next {
		return ErrWrongTurn
	}
	if s.actions[index].PlayerID != playerID {
		return ErrWrongTurn
	}
	if _, taken := s.used[championID]; taken {
		return ErrDuplicateChampion
	}

	s.actions[index].ChampionID = championID
	s.actions[index].Performed = true
	s.used[championID] = index
	s.next++

	if s.next == len(s.actions) {
		s.state = StateAwaitingFinal
	}
	return nil
}

// ChangePick amends the most recent action performed by playerID to a new
// champion. Allowed until the session is confirmed; ordering does not apply,
// champion uniqueness still does. The old champion is released and the new
// one claimed in one step.
func (s *Session) ChangePick(playerID, championID string) error {
	if s.terminal() {
		return ErrSessionTerminal
	}
	for i := len(s.actions) - 1; i >= 0; i-- {
		if s.actions[i].Performed && s.actions[i].PlayerID == playerID {
			return s.ChangePickAt(i, playerID, championID)
		}
	}
	if _, ok := s.roster[playerID]; !ok {
		return ErrUnknownPlayer
	}
	return fmt.Errorf("%w: player %q has no performed action", ErrBadInput, playerID)
}

// ChangePickAt is the explicit-index variant; the action must belong to the
// submitting player.
func (s *Session) ChangePickAt(index int, playerID, championID string) error {
	if s.terminal() {
		return ErrSessionTerminal
	}
	if championID == "" || playerID == "" {
		return fmt.Errorf("%w: champion and player required", ErrBadInput)
	}
	if index < 0 || index >= len(s.actions) {
		return fmt.Errorf("%w: action index %d out of range", ErrBadInput, index)
	}
	act := &s.actions[index]
	if !act.Performed || act.PlayerID != playerID {
		return ErrWrongTurn
	}
	if act.ChampionID == championID {
		return nil
	}
	if holder, taken := s.used[championID]; taken && holder != index {
		return ErrDuplicateChampion
	}

	delete(s.used, act.ChampionID)
	s.used[championID] = index
	act.ChampionID = championID
	return nil
}

// Cancel forces the session into the cancelled state. Cancelling twice, or
// cancelling a confirmed session, reports the terminal condition instead of
// silently succeeding.
func (s *Session) Cancel() error {
	if s.terminal() {
		return ErrSessionTerminal
	}
	s.state = StateCancelled
	return nil
}

// Snapshot is a read-only projection of the whole session.
type Snapshot struct {
	MatchID            string   `json:"match_id"`
	State              State    `json:"state"`
	NextIndex          int      `json:"next_index"`
	Actions            []Action `json:"actions"`
	UsedChampions      []string `json:"used_champions"`
	FinalConfirmations []string `json:"final_confirmations"`
	TotalPlayers       int      `json:"total_players"`
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		MatchID:            s.matchID,
		State:              s.state,
		NextIndex:          s.next,
		Actions:            make([]Action, len(s.actions)),
		UsedChampions:      make([]string, 0, len(s.used)),
		FinalConfirmations: make([]string, 0, len(s.finals)),
		TotalPlayers:       len(s.roster),
	}
	copy(snap.Actions, s.actions)
	for c := range s.used {
		snap.UsedChampions = append(snap.UsedChampions, c)
	}
	for p := range s.finals {
		snap.FinalConfirmations = append(snap.FinalConfirmations, p)
	}
	sort.Strings(snap.UsedChampions)
	sort.Strings(snap.FinalConfirmations)
	return snap
}
