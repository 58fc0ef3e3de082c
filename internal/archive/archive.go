// Package archive persists the final snapshot of drafts that reached a
// terminal state, so a confirmed or cancelled draft remains queryable after
// its room is gone.
package archive

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/DoyleJ11/draft-sync-backend/internal/draft"
)

// DraftRecord is the archived row for one finished draft. Actions and
// confirmations are stored as JSON text; nothing queries inside them.
type DraftRecord struct {
	ID                 uint   `gorm:"primaryKey"`
	MatchID            string `gorm:"uniqueIndex;size:64"`
	State              string `gorm:"size:32"`
	Actions            string
	UsedChampions      string
	FinalConfirmations string
	TotalPlayers       int
	ArchivedAt         time.Time
}

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}
	if err := db.AutoMigrate(&DraftRecord{}); err != nil {
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Archive satisfies hub.Archiver. A write failure here loses only the
// archival copy, never draft correctness, so it is logged rather than
// propagated.
func (s *Store) Archive(snap draft.Snapshot) {
	rec, err := toRecord(snap)
	if err != nil {
		s.log.Error("encode draft record", zap.String("match_id", snap.MatchID), zap.Error(err))
		return
	}
	if err := s.db.Create(&rec).Error; err != nil {
		s.log.Error("archive draft", zap.String("match_id", snap.MatchID), zap.Error(err))
	}
}

func toRecord(snap draft.Snapshot) (DraftRecord, error) {
	actions, err := json.Marshal(snap.Actions)
	if err != nil {
		return DraftRecord{}, err
	}
	champs, err := json.Marshal(snap.UsedChampions)
	if err != nil {
		return DraftRecord{}, err
	}
	finals, err := json.Marshal(snap.FinalConfirmations)
	if err != nil {
		return DraftRecord{}, err
	}
	return DraftRecord{
		MatchID:            snap.MatchID,
		State:              string(snap.State),
		Actions:            string(actions),
		UsedChampions:      string(champs),
		FinalConfirmations: string(finals),
		TotalPlayers:       snap.TotalPlayers,
		ArchivedAt:         time.Now().UTC(),
	}, nil
}
