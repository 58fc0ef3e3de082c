package archive

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/draft-sync-backend/internal/draft"
)

func TestToRecord(t *testing.T) {
	snap := draft.Snapshot{
		MatchID:   "m1",
		State:     draft.StateConfirmed,
		NextIndex: 2,
		Actions: []draft.Action{
			{Index: 0, PlayerID: "P1", Kind: draft.KindBan, ChampionID: "Ashe", Performed: true},
			{Index: 1, PlayerID: "P2", Kind: draft.KindPick, ChampionID: "Garen", Performed: true},
		},
		UsedChampions:      []string{"Ashe", "Garen"},
		FinalConfirmations: []string{"P1", "P2"},
		TotalPlayers:       2,
	}

	rec, err := toRecord(snap)
	require.NoError(t, err)

	assert.Equal(t, "m1", rec.MatchID)
	assert.Equal(t, "confirmed", rec.State)
	assert.Equal(t, 2, rec.TotalPlayers)
	assert.False(t, rec.ArchivedAt.IsZero())

	var actions []draft.Action
	require.NoError(t, json.Unmarshal([]byte(rec.Actions), &actions))
	assert.Equal(t, snap.Actions, actions)

	var finals []string
	require.NoError(t, json.Unmarshal([]byte(rec.FinalConfirmations), &finals))
	assert.Equal(t, []string{"P1", "P2"}, finals)
}
