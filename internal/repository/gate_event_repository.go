package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"parking-service/internal/model"
)

type GateEventRepository struct {
	db *gorm.DB
}

func NewGateEventRepository(db *gorm.DB) *GateEventRepository {
	return &GateEventRepository{db: db}
}

// ListRecent returns the newest events first, optionally for one gate.
// A non-positive limit returns every event.
func (r *GateEventRepository) ListRecent(ctx context.Context, gate *model.Gate, limit int) ([]model.GateEvent, error) {
	var events []model.GateEvent
	query := r.db.WithContext(ctx).Model(&model.GateEvent{})
	if gate != nil {
		query = query.Where("gate = ?", string(*gate))
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Order("detected_at DESC").Order("session_id ASC").Find(&events).Error
	return events, err
}

func (r *GateEventRepository) GetByID(ctx context.Context, id string) (*model.GateEvent, error) {
	var event model.GateEvent
	err := r.db.WithContext(ctx).Where("session_id = ?", id).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *GateEventRepository) ListByIDs(ctx context.Context, ids []string) ([]model.GateEvent, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var events []model.GateEvent
	err := r.db.WithContext(ctx).Where("session_id IN ?", ids).Find(&events).Error
	return events, err
}

// FindOpenEntry returns the latest In event with the given plate and face
// at or before the given time that is not checked out and not mapped yet.
func (r *GateEventRepository) FindOpenEntry(ctx context.Context, plate, faceID string, before time.Time) (*model.GateEvent, error) {
	var event model.GateEvent
	err := r.db.WithContext(ctx).
		Where("gate = ?", string(model.GateIn)).
		Where("is_out = ?", false).
		Where("TRIM(plate_number) = ? AND face_index = ?", strings.TrimSpace(plate), faceID).
		Where("detected_at <= ?", before).
		Where("session_id NOT IN (?)", r.db.Model(&model.SessionMap{}).Select("entry_session_id")).
		Order("detected_at DESC").
		Order("session_id ASC").
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}
