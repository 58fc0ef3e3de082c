package draft

import (
	"errors"
	"testing"
)

func awaitingFinalSession(t *testing.T) *Session {
	t.Helper()
	s := twoActionSession(t)
	if err := s.ProcessAction(0, "Ashe", "P1"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := s.ProcessAction(1, "Garen", "P2"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return s
}

func TestConfirmFinalQuorum(t *testing.T) {
	s := awaitingFinalSession(t)

	res, err := s.ConfirmFinal("P1")
	if err != nil {
		t.Fatalf("confirm P1: %v", err)
	}
	want := FinalConfirmation{AllConfirmed: false, ConfirmedCount: 1, TotalPlayers: 2}
	if res != want {
		t.Fatalf("got %+v, want %+v", res, want)
	}

	res, err = s.ConfirmFinal("P2")
	if err != nil {
		t.Fatalf("confirm P2: %v", err)
	}
	want = FinalConfirmation{AllConfirmed: true, ConfirmedCount: 2, TotalPlayers: 2}
	if res != want {
		t.Fatalf("got %+v, want %+v", res, want)
	}
	if s.State() != StateConfirmed {
		t.Fatalf("want confirmed, got %s", s.State())
	}
}

func TestConfirmFinalIsIdempotentPerPlayer(t *testing.T) {
	s := awaitingFinalSession(t)

	for i := 0; i < 3; i++ {
		res, err := s.ConfirmFinal("P1")
		if err != nil {
			t.Fatalf("confirm %d: %v", i, err)
		}
		if res.ConfirmedCount != 1 {
			t.Fatalf("confirm %d: count %d, want 1", i, res.ConfirmedCount)
		}
		if res.ConfirmedCount > res.TotalPlayers {
			t.Fatalf("count exceeded roster: %+v", res)
		}
	}
}

func TestConfirmFinalAfterFullQuorumStillAcknowledges(t *testing.T) {
	s := awaitingFinalSession(t)
	if _, err := s.ConfirmFinal("P1"); err != nil {
		t.Fatalf("confirm P1: %v", err)
	}
	if _, err := s.ConfirmFinal("P2"); err != nil {
		t.Fatalf("confirm P2: %v", err)
	}

	// P2's client re-sends its confirmation after reconnect.
	res, err := s.ConfirmFinal("P2")
	if err != nil {
		t.Fatalf("re-confirm after quorum: %v", err)
	}
	if !res.AllConfirmed || res.ConfirmedCount != 2 {
		t.Fatalf("got %+v", res)
	}
}

func TestConfirmFinalRejections(t *testing.T) {
	t.Run("while in progress", func(t *testing.T) {
		s := twoActionSession(t)
		if _, err := s.ConfirmFinal("P1"); !errors.Is(err, ErrWrongPhase) {
			t.Fatalf("want ErrWrongPhase, got %v", err)
		}
	})

	t.Run("off-roster player", func(t *testing.T) {
		s := awaitingFinalSession(t)
		if _, err := s.ConfirmFinal("P9"); !errors.Is(err, ErrUnknownPlayer) {
			t.Fatalf("want ErrUnknownPlayer, got %v", err)
		}
	})

	t.Run("after cancel", func(t *testing.T) {
		s := awaitingFinalSession(t)
		if err := s.Cancel(); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if _, err := s.ConfirmFinal("P1"); !errors.Is(err, ErrSessionTerminal) {
			t.Fatalf("want ErrSessionTerminal, got %v", err)
		}
	})
}

func TestConfirmSyncHighWaterMark(t *testing.T) {
	s := awaitingFinalSession(t)

	if err := s.ConfirmSync("P1", 0); err != nil {
		t.Fatalf("ack 0: %v", err)
	}
	if err := s.ConfirmSync("P1", 1); err != nil {
		t.Fatalf("ack 1: %v", err)
	}
	// Re-delivered stale ack must not move the mark backwards.
	if err := s.ConfirmSync("P1", 0); err != nil {
		t.Fatalf("stale ack: %v", err)
	}

	st := s.Confirmations()
	var p1 PlayerConfirmation
	for _, pc := range st.Players {
		if pc.PlayerID == "P1" {
			p1 = pc
		}
	}
	if p1.SyncedIndex != 1 {
		t.Fatalf("synced index %d, want 1", p1.SyncedIndex)
	}
}

func TestConfirmSyncRejections(t *testing.T) {
	s := twoActionSession(t)
	if err := s.ProcessAction(0, "Ashe", "P1"); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := s.ConfirmSync("P9", 0); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("off-roster: want ErrUnknownPlayer, got %v", err)
	}
	if err := s.ConfirmSync("P1", 5); !errors.Is(err, ErrBadInput) {
		t.Fatalf("out of range: want ErrBadInput, got %v", err)
	}
	if err := s.ConfirmSync("P1", 1); !errors.Is(err, ErrWrongTurn) {
		t.Fatalf("unperformed index: want ErrWrongTurn, got %v", err)
	}
}

func TestConfirmationsProjection(t *testing.T) {
	s := awaitingFinalSession(t)
	if err := s.ConfirmSync("P1", 1); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if _, err := s.ConfirmFinal("P2"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	st := s.Confirmations()
	if st.MatchID != "m1" || st.State != StateAwaitingFinal || st.NextIndex != 2 {
		t.Fatalf("projection header wrong: %+v", st)
	}
	if len(st.Players) != 2 {
		t.Fatalf("want 2 players, got %d", len(st.Players))
	}
	// Players are sorted by id.
	if st.Players[0].PlayerID != "P1" || st.Players[1].PlayerID != "P2" {
		t.Fatalf("unexpected order: %+v", st.Players)
	}
	if st.Players[0].SyncedIndex != 1 || st.Players[0].FinalConfirmed {
		t.Fatalf("P1 projection wrong: %+v", st.Players[0])
	}
	if st.Players[1].SyncedIndex != -1 || !st.Players[1].FinalConfirmed {
		t.Fatalf("P2 projection wrong: %+v", st.Players[1])
	}
}
