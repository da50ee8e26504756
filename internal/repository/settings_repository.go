package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"parking-service/internal/model"
)

type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetInt returns nil when the key has never been written.
func (r *SettingsRepository) GetInt(ctx context.Context, key string) (*int, error) {
	var setting model.ParkingSetting
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &setting.IntValue, nil
}

func (r *SettingsRepository) SetInt(ctx context.Context, key string, value int) error {
	setting := model.ParkingSetting{Key: key, IntValue: value}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"int_value", "updated_at"}),
	}).Create(&setting).Error
}
