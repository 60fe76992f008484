package models

import "time"

// ReviewStatus is the state of one reviewer's pass over an article.
type ReviewStatus string

const (
	ReviewPending    ReviewStatus = "pending"
	ReviewInProgress ReviewStatus = "in_progress"
	ReviewCompleted  ReviewStatus = "completed"
)

// ReviewRecordModel tracks one reviewer's pass over an article. A fresh record
// is opened per resubmission cycle; closed records are kept for audit with
// Lifecycle = archived rather than deleted.
//
// Invariant: at most one record per (article, reviewer) pair has IsActive = true.
type ReviewRecordModel struct {
	Base
	ArticleID  string       `json:"article_id"  gorm:"type:char(36);index:idx_review_article_reviewer;not null"`
	ReviewerID string       `json:"reviewer_id" gorm:"type:char(36);index:idx_review_article_reviewer;not null"`
	Status     ReviewStatus `json:"status"      gorm:"type:varchar(16);index;default:pending"`

	// ReviewerNotes are private to the reviewer; the read surface redacts them
	// for everyone else, including the article author.
	ReviewerNotes string `json:"-" gorm:"type:longtext"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	IsActive    bool       `json:"is_active" gorm:"index;default:true"`
	Lifecycle   Lifecycle  `json:"lifecycle" gorm:"type:varchar(16);index;default:active"`

	Article  *ArticleModel `json:"article,omitempty"  gorm:"foreignKey:ArticleID"`
	Reviewer *UserModel    `json:"reviewer,omitempty" gorm:"foreignKey:ReviewerID"`
}

func (ReviewRecordModel) TableName() string { return "review_records" }
