package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"parking-service/internal/model"
)

var ErrDuplicate = errors.New("record already exists")

type SessionMapRepository struct {
	db *gorm.DB
}

func NewSessionMapRepository(db *gorm.DB) *SessionMapRepository {
	return &SessionMapRepository{db: db}
}

// ListByEventIDs returns maps whose entry or exit is one of ids.
func (r *SessionMapRepository) ListByEventIDs(ctx context.Context, ids []string) ([]model.SessionMap, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var maps []model.SessionMap
	err := r.db.WithContext(ctx).
		Where("entry_session_id IN ? OR exit_session_id IN ?", ids, ids).
		Order("created_at ASC").
		Find(&maps).Error
	return maps, err
}

func (r *SessionMapRepository) GetByExitID(ctx context.Context, exitID string) (*model.SessionMap, error) {
	var m model.SessionMap
	err := r.db.WithContext(ctx).Where("exit_session_id = ?", exitID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// Finalize links entry and exit and marks the entry checked out in one
// transaction.
func (r *SessionMapRepository) Finalize(ctx context.Context, entryID, exitID string) (*model.SessionMap, error) {
	m := &model.SessionMap{EntrySessionID: entryID, ExitSessionID: exitID}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return tx.Model(&model.GateEvent{}).
			Where("session_id = ?", entryID).
			Update("is_out", true).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return m, nil
}
