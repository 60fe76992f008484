package review

import (
	"time"

	"github.com/inkpress/core/internal/models"
)

// Detail is the review record as returned by the API. ReviewerNotes is present
// only when the requester is the reviewing user; everyone else sees null.
type Detail struct {
	ID            string              `json:"id"`
	ArticleID     string              `json:"article_id"`
	ReviewerID    string              `json:"reviewer_id"`
	Status        models.ReviewStatus `json:"status"`
	ReviewerNotes *string             `json:"reviewer_notes"`
	StartedAt     time.Time           `json:"started_at"`
	CompletedAt   *time.Time          `json:"completed_at"`
	IsActive      bool                `json:"is_active"`
	Created       time.Time           `json:"created"`
}

// NewDetail builds the API shape, redacting notes unless the requester is the
// reviewer.
func NewDetail(r *models.ReviewRecordModel, requesterID string) Detail {
	d := Detail{
		ID:          r.ID,
		ArticleID:   r.ArticleID,
		ReviewerID:  r.ReviewerID,
		Status:      r.Status,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		IsActive:    r.IsActive,
		Created:     r.CreatedAt,
	}
	if requesterID == r.ReviewerID {
		notes := r.ReviewerNotes
		d.ReviewerNotes = &notes
	}
	return d
}
