package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/draft-sync-backend/internal/draft"
	"github.com/DoyleJ11/draft-sync-backend/internal/hub"
	"github.com/DoyleJ11/draft-sync-backend/internal/inbox"
)

func newTestServer(t *testing.T) (*httptest.Server, Deps) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	deps := Deps{
		Hub:       hub.NewHub(ctx, nil),
		Inbox:     inbox.NewMemory(),
		BackendID: "backend-test",
		Log:       zap.NewNop(),
	}
	srv := httptest.NewServer(SetupRoutes(deps))
	t.Cleanup(srv.Close)
	return srv, deps
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createMatch(t *testing.T, srv *httptest.Server, matchID string) {
	t.Helper()
	resp := postJSON(t, srv.URL+"/matches", map[string]any{
		"match_id": matchID,
		"schedule": []map[string]string{
			{"player_id": "P1", "kind": "ban"},
			{"player_id": "P2", "kind": "pick"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func TestSubmitActionFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	createMatch(t, srv, "m1")

	resp := postJSON(t, srv.URL+"/matches/m1/actions", map[string]any{
		"action_index": 0, "champion_id": "Ashe", "player_id": "P1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[actionResult](t, resp)
	assert.True(t, res.Accepted)

	// Duplicate champion is an expected rejection, reported as a 200.
	resp = postJSON(t, srv.URL+"/matches/m1/actions", map[string]any{
		"action_index": 1, "champion_id": "Ashe", "player_id": "P2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res = decode[actionResult](t, resp)
	assert.False(t, res.Accepted)
	assert.Equal(t, "duplicate_champion", res.Reason)

	resp = postJSON(t, srv.URL+"/matches/m1/actions", map[string]any{
		"action_index": 1, "champion_id": "Garen", "player_id": "P2",
	})
	res = decode[actionResult](t, resp)
	assert.True(t, res.Accepted)

	snap := decode[snapshotResponse](t, getOK(t, srv.URL+"/matches/m1"))
	assert.True(t, snap.Exists)
	assert.Equal(t, draft.StateAwaitingFinal, snap.State.State)
	assert.Equal(t, []string{"Ashe", "Garen"}, snap.State.UsedChampions)
}

func TestSubmitActionWithEventIDIsDeduplicated(t *testing.T) {
	srv, _ := newTestServer(t)
	createMatch(t, srv, "m1")

	body := map[string]any{
		"action_index": 0, "champion_id": "Ashe", "player_id": "P1", "event_id": "evt-1",
	}
	res := decode[actionResult](t, postJSON(t, srv.URL+"/matches/m1/actions", body))
	assert.True(t, res.Accepted)

	// Client times out and resubmits the original request verbatim. The
	// retry is acknowledged as a duplicate, not as a fresh acceptance.
	dup := decode[dedupedResult](t, postJSON(t, srv.URL+"/matches/m1/actions", body))
	assert.True(t, dup.Deduped)

	snap := decode[snapshotResponse](t, getOK(t, srv.URL+"/matches/m1"))
	assert.Equal(t, 1, snap.State.NextIndex)
}

func TestSubmitActionToUnknownMatchKeepsEventIDFresh(t *testing.T) {
	srv, _ := newTestServer(t)

	body := map[string]any{
		"action_index": 0, "champion_id": "Ashe", "player_id": "P1", "event_id": "evt-early",
	}
	resp := postJSON(t, srv.URL+"/matches/m1/actions", body)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	createMatch(t, srv, "m1")

	// The retry after the match exists must apply; had the rejected attempt
	// been recorded, this delivery would bounce off the ledger instead.
	res := decode[actionResult](t, postJSON(t, srv.URL+"/matches/m1/actions", body))
	assert.True(t, res.Accepted)

	snap := decode[snapshotResponse](t, getOK(t, srv.URL+"/matches/m1"))
	assert.Equal(t, 1, snap.State.NextIndex)
}

func TestSnapshotUnknownMatch(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/matches/nope")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	snap := decode[snapshotResponse](t, resp)
	assert.False(t, snap.Exists)
}

func TestFinalConfirmationFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	createMatch(t, srv, "m1")
	for i, sub := range []map[string]any{
		{"action_index": 0, "champion_id": "Ashe", "player_id": "P1"},
		{"action_index": 1, "champion_id": "Garen", "player_id": "P2"},
	} {
		res := decode[actionResult](t, postJSON(t, srv.URL+"/matches/m1/actions", sub))
		require.True(t, res.Accepted, "action %d", i)
	}

	res := decode[draft.FinalConfirmation](t, postJSON(t, srv.URL+"/matches/m1/final-confirmations",
		map[string]any{"player_id": "P1"}))
	assert.Equal(t, draft.FinalConfirmation{AllConfirmed: false, ConfirmedCount: 1, TotalPlayers: 2}, res)

	res = decode[draft.FinalConfirmation](t, postJSON(t, srv.URL+"/matches/m1/final-confirmations",
		map[string]any{"player_id": "P2"}))
	assert.Equal(t, draft.FinalConfirmation{AllConfirmed: true, ConfirmedCount: 2, TotalPlayers: 2}, res)

	snap := decode[snapshotResponse](t, getOK(t, srv.URL+"/matches/m1"))
	assert.Equal(t, draft.StateConfirmed, snap.State.State)
}

func TestConfirmationProjection(t *testing.T) {
	srv, _ := newTestServer(t)
	createMatch(t, srv, "m1")
	res := decode[actionResult](t, postJSON(t, srv.URL+"/matches/m1/actions",
		map[string]any{"action_index": 0, "champion_id": "Ashe", "player_id": "P1"}))
	require.True(t, res.Accepted)

	resp := postJSON(t, srv.URL+"/matches/m1/sync-confirmations",
		map[string]any{"player_id": "P2", "action_index": 0})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	status := decode[draft.ConfirmationStatus](t, getOK(t, srv.URL+"/matches/m1/confirmations"))
	require.Len(t, status.Players, 2)
	assert.Equal(t, 1, status.NextIndex)
	assert.Equal(t, -1, status.Players[0].SyncedIndex) // P1 never acked
	assert.Equal(t, 0, status.Players[1].SyncedIndex)
}

func TestCancelThenSubmit(t *testing.T) {
	srv, _ := newTestServer(t)
	createMatch(t, srv, "m1")

	resp := postJSON(t, srv.URL+"/matches/m1/cancel", map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	res := decode[actionResult](t, postJSON(t, srv.URL+"/matches/m1/actions",
		map[string]any{"action_index": 0, "champion_id": "Ashe", "player_id": "P1"}))
	assert.False(t, res.Accepted)
	assert.Equal(t, "session_terminal", res.Reason)
}

func TestIngestEventDeduplicatesAcrossBackends(t *testing.T) {
	srv, _ := newTestServer(t)
	createMatch(t, srv, "m1")

	evt := map[string]any{
		"event_id":   "evt-1",
		"event_type": "draft.action",
		"backend_id": "backend-A",
		"match_id":   "m1",
		"payload":    map[string]any{"action_index": 0, "champion_id": "Ashe", "player_id": "P1"},
	}
	res := decode[ingestResponse](t, postJSON(t, srv.URL+"/events", evt))
	assert.False(t, res.Deduped)

	// The same upstream event relayed through a second instance.
	evt["backend_id"] = "backend-B"
	res = decode[ingestResponse](t, postJSON(t, srv.URL+"/events", evt))
	assert.True(t, res.Deduped)

	snap := decode[snapshotResponse](t, getOK(t, srv.URL+"/matches/m1"))
	assert.Equal(t, 1, snap.State.NextIndex, "effect applied exactly once")
}

func TestIngestEventGeneratesEventID(t *testing.T) {
	srv, _ := newTestServer(t)

	res := decode[ingestResponse](t, postJSON(t, srv.URL+"/events", map[string]any{
		"event_type": "telemetry.blip",
	}))
	assert.NotEmpty(t, res.EventID)
	assert.False(t, res.Deduped)
}

func TestIngestCreateEvent(t *testing.T) {
	srv, _ := newTestServer(t)

	res := decode[ingestResponse](t, postJSON(t, srv.URL+"/events", map[string]any{
		"event_id":   "evt-create",
		"event_type": "draft.create",
		"match_id":   "m9",
		"payload": map[string]any{
			"schedule": []map[string]string{
				{"player_id": "P1", "kind": "ban"},
				{"player_id": "P2", "kind": "pick"},
			},
		},
	}))
	assert.False(t, res.Deduped)

	snap := decode[snapshotResponse](t, getOK(t, srv.URL+"/matches/m9"))
	assert.True(t, snap.Exists)
	assert.Equal(t, 2, snap.State.TotalPlayers)
}

func TestIngestChangePickEventHonorsExplicitIndex(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/matches", map[string]any{
		"match_id": "m1",
		"schedule": []map[string]string{
			{"player_id": "P1", "kind": "ban"},
			{"player_id": "P2", "kind": "pick"},
			{"player_id": "P1", "kind": "pick"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	for i, sub := range []map[string]any{
		{"action_index": 0, "champion_id": "Ashe", "player_id": "P1"},
		{"action_index": 1, "champion_id": "Garen", "player_id": "P2"},
		{"action_index": 2, "champion_id": "Lux", "player_id": "P1"},
	} {
		res := decode[actionResult](t, postJSON(t, srv.URL+"/matches/m1/actions", sub))
		require.True(t, res.Accepted, "action %d", i)
	}

	res := decode[ingestResponse](t, postJSON(t, srv.URL+"/events", map[string]any{
		"event_id":   "evt-amend",
		"event_type": "draft.change_pick",
		"match_id":   "m1",
		"payload":    map[string]any{"action_index": 0, "champion_id": "Zed", "player_id": "P1"},
	}))
	assert.False(t, res.Deduped)

	snap := decode[snapshotResponse](t, getOK(t, srv.URL+"/matches/m1"))
	assert.Equal(t, "Zed", snap.State.Actions[0].ChampionID)
	assert.Equal(t, "Lux", snap.State.Actions[2].ChampionID, "latest action untouched when the index is explicit")
}

func TestIngestEventRequiresType(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/events", map[string]any{"event_id": "evt-1"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func getOK(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, "GET %s", url)
	return resp
}
