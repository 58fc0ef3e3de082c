package types

import "github.com/DoyleJ11/draft-sync-backend/internal/draft"

type ClientMessage struct {
	Type        string `json:"type"` // "SubmitAction" | "ChangePick" | "ConfirmSync" | "ConfirmFinal"
	ActionIndex int    `json:"action_index,omitempty"`
	ChampionID  string `json:"champion_id,omitempty"`
	PlayerID    string `json:"player_id,omitempty"`
}

type ServerMessage struct {
	Type         string                   `json:"type"` // "StateSnapshot" | "FinalConfirmation" | "Error"
	Version      int                      `json:"version,omitempty"`
	State        *draft.Snapshot          `json:"state,omitempty"`
	Confirmation *draft.FinalConfirmation `json:"confirmation,omitempty"`
	Error        string                   `json:"error,omitempty"`
}
