package article

// CreateArticleDTO creates a draft.
type CreateArticleDTO struct {
	Title      string   `json:"title" binding:"required"`
	Text       string   `json:"text"`
	Summary    string   `json:"summary"`
	CategoryID *string  `json:"category_id"`
	Tags       []string `json:"tags"`
}

// UpdateArticleDTO patches editable content fields. Status is never accepted
// here; only the workflow engine moves it.
type UpdateArticleDTO struct {
	Title      *string  `json:"title"`
	Text       *string  `json:"text"`
	Summary    *string  `json:"summary"`
	CategoryID *string  `json:"category_id"`
	Tags       []string `json:"tags"`
	IsFeatured *bool    `json:"is_featured"`
}

// ClaimReviewDTO optionally names the reviewer (manager assignment); empty
// means the caller claims the review themselves.
type ClaimReviewDTO struct {
	ReviewerID string `json:"reviewer_id"`
}

// ReviewDecisionDTO carries the assigned reviewer's verdict.
type ReviewDecisionDTO struct {
	Decision string `json:"decision" binding:"required"`
	Notes    string `json:"notes"`
}

// AssignDTO names a user for a reviewer/editor slot.
type AssignDTO struct {
	UserID string `json:"user_id" binding:"required"`
}

// Review decisions accepted by POST /articles/:id/review-decision.
const (
	DecisionChangesRequested = "changes_requested"
	DecisionReady            = "ready"
	DecisionRejected         = "rejected"
)
