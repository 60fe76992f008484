package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inkpress/core/internal/models"
	"github.com/inkpress/core/internal/modules/editorial/roles"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notification verbs emitted on successful transitions.
const (
	VerbSubmitted        = "article.submitted"
	VerbReviewClaimed    = "article.review_claimed"
	VerbChangesRequested = "article.changes_requested"
	VerbReadyToPublish   = "article.ready_for_publishing"
	VerbPublished        = "article.published"
	VerbRejected         = "article.rejected"
	VerbReviewerAssigned = "article.reviewer_assigned"
	VerbEditorAssigned   = "article.editor_assigned"
)

// Notifier receives exactly one event per successful transition, after the
// transaction has committed. Delivery failures never surface back here; the
// receiving side deduplicates identical events within its own window.
type Notifier interface {
	Notify(ctx context.Context, recipientID, verb, targetID, actorID string)
}

// NopNotifier discards events.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, string, string, string) {}

// Engine is the sole authority that mutates Article.Status. Every transition is
// a single transaction guarded by an optimistic prior-status check; concurrent
// conflicting transitions lose with ErrConflictingTransition.
type Engine struct {
	db       *gorm.DB
	oracle   roles.Oracle
	notifier Notifier
	logger   *zap.Logger
}

func NewEngine(db *gorm.DB, oracle roles.Oracle, notifier Notifier, logger *zap.Logger) *Engine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Engine{db: db, oracle: oracle, notifier: notifier, logger: logger}
}

// TransitionInput describes one transition request.
type TransitionInput struct {
	ArticleID string
	Target    models.ArticleStatus
	ActorID   string
	// Notes carries the reviewer's private notes on a review decision.
	Notes string
	// ReviewerID is set when a manager assigns a reviewer while moving the
	// article to under_review; empty means the actor claims it themselves.
	ReviewerID string
}

// Transition validates and executes a status change, with its review-record
// side effects, atomically. On success the refreshed article is returned and
// one notification event has been handed to the notifier.
func (e *Engine) Transition(ctx context.Context, in TransitionInput) (*models.ArticleModel, error) {
	if !in.Target.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, in.Target)
	}

	article, err := e.load(ctx, in.ArticleID)
	if err != nil {
		return nil, err
	}
	from := article.Status

	actor, err := e.oracle.Membership(ctx, in.ActorID)
	if err != nil {
		if errors.Is(err, roles.ErrUnknownUser) {
			return nil, forbidden(in.ActorID, in.Target)
		}
		return nil, err
	}

	rule, edgeOK := edgeRule(from, in.Target)
	override := managerOverride(actor, from, in.Target)
	switch {
	case !edgeOK && !override:
		return nil, invalidTransition(from, in.Target)
	case edgeOK && !satisfies(rule, actor, article) && !override:
		return nil, forbidden(in.ActorID, in.Target)
	}

	reviewerID, err := e.resolveReviewer(ctx, article, actor, in)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":     in.Target,
		"updated_at": now,
	}
	if in.Target == models.StatusUnderReview {
		updates["reviewer_id"] = reviewerID
	}
	if in.Target == models.StatusPublished {
		updates["published_at"] = now
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ArticleModel{}).
			Where("id = ? AND status = ?", article.ID, from).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		// Zero rows means another transition won the race since we read.
		if res.RowsAffected == 0 {
			return ErrConflictingTransition
		}
		return e.applyReviewSideEffects(tx, article, from, in.Target, reviewerID, in.Notes, now)
	})
	if err != nil {
		return nil, err
	}

	// The transition is durably committed at this point. Build the result from
	// what was written rather than a reload; a failed read after commit must
	// not turn a succeeded transition into an error or swallow its event.
	article.Status = in.Target
	article.UpdatedAt = now
	if in.Target == models.StatusUnderReview {
		article.ReviewerID = &reviewerID
	}
	if in.Target == models.StatusPublished {
		article.PublishedAt = &now
	}

	e.emit(ctx, article, from, in.Target, actor.UserID)
	return article, nil
}

// AssignReviewer lets a manager (re)assign the reviewer of any non-terminal
// article. The displaced reviewer's active record is closed and archived; a
// fresh pending record is opened when the article is already under review.
func (e *Engine) AssignReviewer(ctx context.Context, articleID, actorID, reviewerID string) (*models.ArticleModel, error) {
	article, actor, err := e.loadForManager(ctx, articleID, actorID)
	if err != nil {
		return nil, err
	}
	if err := e.requireRole(ctx, reviewerID, roles.RoleReviewer); err != nil {
		return nil, err
	}

	now := time.Now()
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ArticleModel{}).
			Where("id = ? AND status = ?", article.ID, article.Status).
			Updates(map[string]interface{}{"reviewer_id": reviewerID, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflictingTransition
		}

		if err := tx.Model(&models.ReviewRecordModel{}).
			Where("article_id = ? AND reviewer_id <> ? AND is_active = ? AND lifecycle = ?",
				article.ID, reviewerID, true, models.LifecycleActive).
			Updates(map[string]interface{}{
				"is_active":    false,
				"completed_at": now,
				"lifecycle":    models.LifecycleArchived,
			}).Error; err != nil {
			return err
		}

		if article.Status == models.StatusUnderReview {
			return e.ensureActiveRecord(tx, article.ID, reviewerID, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	article.ReviewerID = &reviewerID
	article.UpdatedAt = now
	e.notifier.Notify(ctx, reviewerID, VerbReviewerAssigned, article.ID, actor.UserID)
	return article, nil
}

// AssignEditor lets a manager (re)assign the editor of any non-terminal article.
func (e *Engine) AssignEditor(ctx context.Context, articleID, actorID, editorID string) (*models.ArticleModel, error) {
	article, actor, err := e.loadForManager(ctx, articleID, actorID)
	if err != nil {
		return nil, err
	}
	if err := e.requireRole(ctx, editorID, roles.RoleEditor); err != nil {
		return nil, err
	}

	now := time.Now()
	res := e.db.WithContext(ctx).Model(&models.ArticleModel{}).
		Where("id = ? AND status = ?", article.ID, article.Status).
		Updates(map[string]interface{}{"editor_id": editorID, "updated_at": now})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrConflictingTransition
	}

	article.EditorID = &editorID
	article.UpdatedAt = now
	e.notifier.Notify(ctx, editorID, VerbEditorAssigned, article.ID, actor.UserID)
	return article, nil
}

func (e *Engine) load(ctx context.Context, id string) (*models.ArticleModel, error) {
	var article models.ArticleModel
	err := e.db.WithContext(ctx).First(&article, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &article, nil
}

func (e *Engine) loadForManager(ctx context.Context, articleID, actorID string) (*models.ArticleModel, roles.Membership, error) {
	article, err := e.load(ctx, articleID)
	if err != nil {
		return nil, roles.Membership{}, err
	}
	actor, err := e.oracle.Membership(ctx, actorID)
	if err != nil || !actor.IsManager() {
		return nil, roles.Membership{}, fmt.Errorf("%w: manager capability required", ErrForbidden)
	}
	if article.Status.Terminal() {
		return nil, roles.Membership{}, fmt.Errorf("%w: article is in terminal state %s", ErrInvalidTransition, article.Status)
	}
	return article, actor, nil
}

func (e *Engine) requireRole(ctx context.Context, userID string, r roles.Role) error {
	m, err := e.oracle.Membership(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: user %s not found", ErrForbidden, userID)
	}
	if !m.Has(r) {
		return fmt.Errorf("%w: user %s lacks role %s", ErrForbidden, userID, r)
	}
	return nil
}

// resolveReviewer determines who the assigned reviewer will be after the
// transition. Only the under_review entry changes the assignment; a
// resubmission from changes_requested keeps the previous reviewer so the same
// person handles the next cycle.
func (e *Engine) resolveReviewer(ctx context.Context, a *models.ArticleModel, actor roles.Membership, in TransitionInput) (string, error) {
	if in.Target != models.StatusUnderReview {
		if a.ReviewerID != nil {
			return *a.ReviewerID, nil
		}
		return "", nil
	}

	if in.ReviewerID != "" {
		// Explicit assignment is a manager action.
		if !actor.IsManager() {
			return "", fmt.Errorf("%w: only a manager may assign a reviewer", ErrForbidden)
		}
		if err := e.requireRole(ctx, in.ReviewerID, roles.RoleReviewer); err != nil {
			return "", err
		}
		return in.ReviewerID, nil
	}

	// Self-claim.
	if !actor.Has(roles.RoleReviewer) {
		return "", fmt.Errorf("%w: reviewer role required to claim a review", ErrForbidden)
	}
	return actor.UserID, nil
}

// applyReviewSideEffects keeps the review-record lifecycle in lock step with
// the article status, inside the same transaction as the status write.
func (e *Engine) applyReviewSideEffects(tx *gorm.DB, a *models.ArticleModel, from, to models.ArticleStatus, reviewerID, notes string, now time.Time) error {
	switch to {
	case models.StatusUnderReview:
		return e.ensureActiveRecord(tx, a.ID, reviewerID, now)

	case models.StatusReadyForPublishing:
		// Approval keeps the record active while publication is pending; only
		// the reviewer's decision notes land now.
		if a.ReviewerID == nil {
			return nil
		}
		return e.storeReviewNotes(tx, a.ID, *a.ReviewerID, notes)

	case models.StatusChangesRequested, models.StatusRejected, models.StatusPublished:
		if from != models.StatusUnderReview && from != models.StatusReadyForPublishing {
			// Force-reject from draft/submitted has no review cycle to close.
			return nil
		}
		if a.ReviewerID == nil {
			return nil
		}
		return e.closeActiveRecord(tx, a.ID, *a.ReviewerID, to, notes, now)
	}
	return nil
}

// storeReviewNotes records the reviewer's notes on the active record without
// ending the cycle.
func (e *Engine) storeReviewNotes(tx *gorm.DB, articleID, reviewerID, notes string) error {
	if notes == "" {
		return nil
	}
	return tx.Model(&models.ReviewRecordModel{}).
		Where("article_id = ? AND reviewer_id = ? AND is_active = ? AND lifecycle = ?",
			articleID, reviewerID, true, models.LifecycleActive).
		Update("reviewer_notes", notes).Error
}

// ensureActiveRecord creates a pending record for a new cycle, or resumes the
// existing active one.
func (e *Engine) ensureActiveRecord(tx *gorm.DB, articleID, reviewerID string, now time.Time) error {
	var record models.ReviewRecordModel
	err := tx.Where("article_id = ? AND reviewer_id = ? AND is_active = ? AND lifecycle = ?",
		articleID, reviewerID, true, models.LifecycleActive).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record = models.ReviewRecordModel{
			ArticleID:  articleID,
			ReviewerID: reviewerID,
			Status:     models.ReviewPending,
			StartedAt:  now,
			IsActive:   true,
			Lifecycle:  models.LifecycleActive,
		}
		return tx.Create(&record).Error
	}
	if err != nil {
		return err
	}
	return tx.Model(&record).Update("status", models.ReviewInProgress).Error
}

// closeActiveRecord ends the current cycle. The record is kept for audit:
// inactive and completion timestamped. Reaching a terminal article state marks
// the record completed; changes_requested leaves the status as is since the
// cycle ended by returning the article to its author.
func (e *Engine) closeActiveRecord(tx *gorm.DB, articleID, reviewerID string, to models.ArticleStatus, notes string, now time.Time) error {
	updates := map[string]interface{}{
		"is_active":    false,
		"completed_at": now,
	}
	if notes != "" {
		updates["reviewer_notes"] = notes
	}
	switch to {
	case models.StatusPublished, models.StatusRejected:
		updates["status"] = models.ReviewCompleted
	}
	return tx.Model(&models.ReviewRecordModel{}).
		Where("article_id = ? AND reviewer_id = ? AND is_active = ? AND lifecycle = ?",
			articleID, reviewerID, true, models.LifecycleActive).
		Updates(updates).Error
}

// emit hands exactly one event describing the transition to the notifier. The
// counterpart is notified: the author hears about reviewer/editor actions, the
// reviewer (or editor, for a fresh submission) hears about author actions.
func (e *Engine) emit(ctx context.Context, a *models.ArticleModel, from, to models.ArticleStatus, actorID string) {
	verb := verbFor(to)
	recipient := a.AuthorID
	if actorID == a.AuthorID {
		switch {
		case a.ReviewerID != nil:
			recipient = *a.ReviewerID
		case a.EditorID != nil:
			recipient = *a.EditorID
		default:
			// First submission with nobody assigned yet: the sink resolves an
			// empty recipient to the editorial desk.
			recipient = ""
		}
	}
	e.notifier.Notify(ctx, recipient, verb, a.ID, actorID)
	if e.logger != nil {
		e.logger.Info("article transition",
			zap.String("article", a.ID),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.String("actor", actorID),
		)
	}
}

func verbFor(to models.ArticleStatus) string {
	switch to {
	case models.StatusSubmittedForReview:
		return VerbSubmitted
	case models.StatusUnderReview:
		return VerbReviewClaimed
	case models.StatusChangesRequested:
		return VerbChangesRequested
	case models.StatusReadyForPublishing:
		return VerbReadyToPublish
	case models.StatusPublished:
		return VerbPublished
	case models.StatusRejected:
		return VerbRejected
	}
	return "article." + string(to)
}
