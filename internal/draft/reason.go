package draft

import "errors"

// Reason maps a rejection to its machine-readable code for the wire. The
// external submit surface stays a pass/fail boolean; the code rides along for
// callers that want it without another snapshot round trip.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrWrongTurn):
		return "ordering_violation"
	case errors.Is(err, ErrDuplicateChampion):
		return "duplicate_champion"
	case errors.Is(err, ErrSessionTerminal):
		return "session_terminal"
	case errors.Is(err, ErrWrongPhase):
		return "wrong_phase"
	case errors.Is(err, ErrUnknownPlayer):
		return "unknown_player"
	case errors.Is(err, ErrBadInput):
		return "invalid_request"
	default:
		return "rejected"
	}
}
