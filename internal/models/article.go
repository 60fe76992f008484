package models

import "time"

// ArticleStatus is the editorial state of an article. Status is only ever
// mutated by the workflow engine; nothing else assigns it directly.
type ArticleStatus string

const (
	StatusDraft              ArticleStatus = "draft"
	StatusSubmittedForReview ArticleStatus = "submitted_for_review"
	StatusUnderReview        ArticleStatus = "under_review"
	StatusChangesRequested   ArticleStatus = "changes_requested"
	StatusReadyForPublishing ArticleStatus = "ready_for_publishing"
	StatusPublished          ArticleStatus = "published"
	StatusRejected           ArticleStatus = "rejected"
)

// Valid reports whether s is a member of the status enum.
func (s ArticleStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmittedForReview, StatusUnderReview,
		StatusChangesRequested, StatusReadyForPublishing, StatusPublished, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s ArticleStatus) Terminal() bool {
	return s == StatusPublished || s == StatusRejected
}

// ArticleModel is a unit of editorial content moving through the workflow.
//
// Invariants: PublishedAt is set iff Status == published; ReviewerID is non-nil
// for under_review / changes_requested / ready_for_publishing; AuthorID never
// changes after creation.
type ArticleModel struct {
	Base
	Title       string        `json:"title"        gorm:"not null"`
	Slug        string        `json:"slug"         gorm:"uniqueIndex;not null"`
	Text        string        `json:"text"         gorm:"type:longtext"`
	Summary     string        `json:"summary"`
	Status      ArticleStatus `json:"status"       gorm:"type:varchar(32);index;default:draft"`
	IsFeatured  bool          `json:"is_featured"  gorm:"default:false"`
	PublishedAt *time.Time    `json:"published_at"`

	AuthorID   string  `json:"author_id"            gorm:"type:char(36);index;not null"`
	ReviewerID *string `json:"reviewer_id"          gorm:"type:char(36);index"`
	EditorID   *string `json:"editor_id"            gorm:"type:char(36);index"`
	CategoryID *string `json:"category_id"          gorm:"index"`

	Author   *UserModel     `json:"author,omitempty"   gorm:"foreignKey:AuthorID"`
	Reviewer *UserModel     `json:"reviewer,omitempty" gorm:"foreignKey:ReviewerID"`
	Editor   *UserModel     `json:"editor,omitempty"   gorm:"foreignKey:EditorID"`
	Category *CategoryModel `json:"category,omitempty" gorm:"foreignKey:CategoryID"`

	Tags StringArray `json:"tags" gorm:"type:json"`
}

func (ArticleModel) TableName() string { return "articles" }
