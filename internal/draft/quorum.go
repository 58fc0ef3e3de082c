package draft

import "sort"

// FinalConfirmation reports quorum progress after a final-draft confirmation.
type FinalConfirmation struct {
	AllConfirmed   bool `json:"all_confirmed"`
	ConfirmedCount int  `json:"confirmed_count"`
	TotalPlayers   int  `json:"total_players"`
}

// PlayerConfirmation is one roster player's view in the confirmation
// projection. SyncedIndex is the highest action index the player has
// acknowledged, -1 if none.
type PlayerConfirmation struct {
	PlayerID       string `json:"player_id"`
	SyncedIndex    int    `json:"synced_index"`
	FinalConfirmed bool   `json:"final_confirmed"`
}

// ConfirmationStatus projects both confirmation channels alongside the
// authoritative next index, so callers can spot clients that lag behind.
type ConfirmationStatus struct {
	MatchID   string               `json:"match_id"`
	State     State                `json:"state"`
	NextIndex int                  `json:"next_index"`
	Players   []PlayerConfirmation `json:"players"`
}

// ConfirmSync records that playerID has observed and applied the action at
// index. Purely informational: it never gates a state transition. Re-acking
// an index, or acking one below the recorded high-water mark, is a no-op.
func (s *Session) ConfirmSync(playerID string, index int) error {
	if s.terminal() {
		return ErrSessionTerminal
	}
	if _, ok := s.roster[playerID]; !ok {
		return ErrUnknownPlayer
	}
	if index < 0 || index >= len(s.actions) {
		return ErrBadInput
	}
	if !s.actions[index].Performed {
		// Client claims to have applied an action the authority hasn't.
		return ErrWrongTurn
	}
	if prev, ok := s.syncAcks[playerID]; !ok || index > prev {
		s.syncAcks[playerID] = index
	}
	return nil
}

// ConfirmFinal records playerID's whole-draft confirmation. Quorum counts
// distinct roster players, never calls; once every roster player has
// confirmed, the session transitions to confirmed. Re-confirming after the
// transition still reports the (complete) quorum rather than erroring.
func (s *Session) ConfirmFinal(playerID string) (FinalConfirmation, error) {
	if _, ok := s.roster[playerID]; !ok {
		return FinalConfirmation{}, ErrUnknownPlayer
	}

	switch s.state {
	case StateAwaitingFinal:
		// fall through
	case StateConfirmed:
		if _, done := s.finals[playerID]; done {
			return s.finalResult(), nil
		}
		return FinalConfirmation{}, ErrSessionTerminal
	case StateCancelled:
		return FinalConfirmation{}, ErrSessionTerminal
	default:
		return FinalConfirmation{}, ErrWrongPhase
	}

	s.finals[playerID] = struct{}{}
	if len(s.finals) == len(s.roster) {
		s.state = StateConfirmed
	}
	return s.finalResult(), nil
}

func (s *Session) finalResult() FinalConfirmation {
	return FinalConfirmation{
		AllConfirmed:   s.state == StateConfirmed,
		ConfirmedCount: len(s.finals),
		TotalPlayers:   len(s.roster),
	}
}

func (s *Session) Confirmations() ConfirmationStatus {
	st := ConfirmationStatus{
		MatchID:   s.matchID,
		State:     s.state,
		NextIndex: s.next,
		Players:   make([]PlayerConfirmation, 0, len(s.roster)),
	}
	for p := range s.roster {
		pc := PlayerConfirmation{PlayerID: p, SyncedIndex: -1}
		if idx, ok := s.syncAcks[p]; ok {
			pc.SyncedIndex = idx
		}
		_, pc.FinalConfirmed = s.finals[p]
		st.Players = append(st.Players, pc)
	}
	sort.Slice(st.Players, func(i, j int) bool { return st.Players[i].PlayerID < st.Players[j].PlayerID })
	return st
}
