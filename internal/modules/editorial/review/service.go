package review

import (
	"context"
	"errors"

	"github.com/inkpress/core/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a review record id does not resolve.
var ErrNotFound = errors.New("review record not found")

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// AssignedQuery scopes a reviewer's record listing. Archived records are
// excluded; historical (inactive) ones of the current lifecycle are included
// for audit.
func (s *Service) AssignedQuery(ctx context.Context, reviewerID string, status models.ReviewStatus) *gorm.DB {
	q := s.db.WithContext(ctx).
		Model(&models.ReviewRecordModel{}).
		Where("reviewer_id = ? AND lifecycle = ?", reviewerID, models.LifecycleActive).
		Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	return q
}

// Get returns a record along with its article (needed for the author
// visibility check).
func (s *Service) Get(ctx context.Context, id string) (*models.ReviewRecordModel, error) {
	var record models.ReviewRecordModel
	err := s.db.WithContext(ctx).
		Preload("Article").
		Where("lifecycle IN ?", []models.Lifecycle{models.LifecycleActive, models.LifecycleArchived}).
		First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
