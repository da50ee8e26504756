package repository

import (
	"context"

	"gorm.io/gorm"

	"parking-service/internal/model"
)

type VerificationRepository struct {
	db *gorm.DB
}

func NewVerificationRepository(db *gorm.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// ListBySessionIDs returns verifications for the given exit sessions,
// oldest first.
func (r *VerificationRepository) ListBySessionIDs(ctx context.Context, ids []string) ([]model.MatchingVerification, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var verifications []model.MatchingVerification
	err := r.db.WithContext(ctx).
		Where("session_id IN ?", ids).
		Order("created_at ASC").
		Find(&verifications).Error
	return verifications, err
}
