package workflow_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/inkpress/core/internal/database"
	"github.com/inkpress/core/internal/models"
	"github.com/inkpress/core/internal/modules/editorial/roles"
	"github.com/inkpress/core/internal/modules/editorial/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	authorID   = "00000000-0000-0000-0000-0000000000a1"
	reviewerID = "00000000-0000-0000-0000-0000000000b1"
	reviewer2  = "00000000-0000-0000-0000-0000000000b2"
	editorID   = "00000000-0000-0000-0000-0000000000c1"
	managerID  = "00000000-0000-0000-0000-0000000000d1"
	outsiderID = "00000000-0000-0000-0000-0000000000e1"
)

func testOracle() roles.Static {
	return roles.Static{
		authorID:   {UserID: authorID, Roles: []roles.Role{roles.RoleContributor}},
		reviewerID: {UserID: reviewerID, Roles: []roles.Role{roles.RoleReviewer}},
		reviewer2:  {UserID: reviewer2, Roles: []roles.Role{roles.RoleReviewer}},
		editorID:   {UserID: editorID, Roles: []roles.Role{roles.RoleEditor}},
		managerID:  {UserID: managerID, Roles: []roles.Role{roles.RoleEditor}, Admin: true},
		outsiderID: {UserID: outsiderID, Roles: []roles.Role{roles.RoleContributor}},
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

type capturedEvent struct {
	Recipient string
	Verb      string
	Target    string
	Actor     string
}

type captureNotifier struct {
	events []capturedEvent
}

func (n *captureNotifier) Notify(_ context.Context, recipient, verb, target, actor string) {
	n.events = append(n.events, capturedEvent{recipient, verb, target, actor})
}

func newEngine(t *testing.T, db *gorm.DB, oracle roles.Oracle) (*workflow.Engine, *captureNotifier) {
	t.Helper()
	n := &captureNotifier{}
	return workflow.NewEngine(db, oracle, n, zap.NewNop()), n
}

func seedArticle(t *testing.T, db *gorm.DB, status models.ArticleStatus, reviewer, editor *string) *models.ArticleModel {
	t.Helper()
	a := &models.ArticleModel{
		Title:      "On Test Fixtures",
		Slug:       "on-test-fixtures-" + uuid.NewString()[:8],
		Text:       "body",
		Status:     status,
		AuthorID:   authorID,
		ReviewerID: reviewer,
		EditorID:   editor,
	}
	require.NoError(t, db.Create(a).Error)
	return a
}

func ptr(s string) *string { return &s }

func TestHappyPathToPublished(t *testing.T) {
	db := openTestDB(t)
	engine, notifier := newEngine(t, db, testOracle())
	ctx := context.Background()

	article := seedArticle(t, db, models.StatusDraft, nil, nil)

	article, err := engine.Transition(ctx, workflow.TransitionInput{
		ArticleID: article.ID, Target: models.StatusSubmittedForReview, ActorID: authorID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmittedForReview, article.Status)

	article, err = engine.Transition(ctx, workflow.TransitionInput{
		ArticleID: article.ID, Target: models.StatusUnderReview, ActorID: reviewerID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, article.Status)
	require.NotNil(t, article.ReviewerID)
	assert.Equal(t, reviewerID, *article.ReviewerID)

	var record models.ReviewRecordModel
	require.NoError(t, db.Where("article_id = ? AND is_active = ?", article.ID, true).First(&record).Error)
	assert.Equal(t, models.ReviewPending, record.Status)
	assert.Equal(t, reviewerID, record.ReviewerID)

	article, err = engine.Transition(ctx, workflow.TransitionInput{
		ArticleID: article.ID, Target: models.StatusReadyForPublishing, ActorID: reviewerID, Notes: "looks solid",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusReadyForPublishing, article.Status)

	_, err = engine.AssignEditor(ctx, article.ID, managerID, editorID)
	require.NoError(t, err)

	article, err = engine.Transition(ctx, workflow.TransitionInput{
		ArticleID: article.ID, Target: models.StatusPublished, ActorID: editorID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, article.Status)
	require.NotNil(t, article.PublishedAt)

	require.NoError(t, db.First(&record, "id = ?", record.ID).Error)
	assert.False(t, record.IsActive)
	assert.Equal(t, models.ReviewCompleted, record.Status)
	assert.NotNil(t, record.CompletedAt)
	assert.Equal(t, "looks solid", record.ReviewerNotes)

	verbs := make([]string, 0, len(notifier.events))
	for _, ev := range notifier.events {
		verbs = append(verbs, ev.Verb)
	}
	assert.Equal(t, []string{
		workflow.VerbSubmitted,
		workflow.VerbReviewClaimed,
		workflow.VerbReadyToPublish,
		workflow.VerbEditorAssigned,
		workflow.VerbPublished,
	}, verbs)
}

func TestFirstSubmissionNotifiesEditorialDesk(t *testing.T) {
	db := openTestDB(t)
	engine, notifier := newEngine(t, db, testOracle())

	article := seedArticle(t, db, models.StatusDraft, nil, nil)
	_, err := engine.Transition(context.Background(), workflow.TransitionInput{
		ArticleID: article.ID, Target: models.StatusSubmittedForReview, ActorID: authorID,
	})
	require.NoError(t, err)

	require.Len(t, notifier.events, 1)
	// Empty recipient means the sink fans out to all managers.
	assert.Equal(t, "", notifier.events[0].Recipient)
	assert.Equal(t, workflow.VerbSubmitted, notifier.events[0].Verb)
	assert.Equal(t, authorID, notifier.events[0].Actor)
}

func TestResubmissionKeepsReviewerAndOpensFreshRecord(t *testing.T) {
	db := openTestDB(t)
	engine, notifier := newEngine(t, db, testOracle())
	ctx := context.Background()

	article := seedArticle(t, db, models.StatusUnderReview, ptr(reviewerID), nil)
	require.NoError(t, db.Create(&models.ReviewRecordModel{
		ArticleID:  article.ID,
		ReviewerID: reviewerID,
		Status:     models.ReviewInProgress,
		IsActive:   true,
		Lifecycle:  models.LifecycleActive,
	}).Error)

	article, err := engine.Transition(ctx, workflow.TransitionInput{
		ArticleID: article.ID, Target: models.StatusChangesRequested, ActorID: reviewerID, Notes: "needs sources",
	})
	require.NoError(t, err)
	require.NotNil(t, article.ReviewerID)
	assert.Equal(t, reviewerID, *article.ReviewerID, "reviewer survives changes_requested")

	// The changes_requested notification goes to the author.
	last := notifier.events[len(notifier.events)-1]
	assert.Equal(t, authorID, last.Recipient)
	assert.Equal(t, workflow.VerbChangesRequested, last.Verb)

	article, err = engine.Transition(ctx, workflow.TransitionInput{
		ArticleID: article.ID, Target: models.StatusSubmittedForReview, ActorID: authorID,
	})
	require.NoError(t, err)
	require.NotNil(t, article.ReviewerID)
	assert.Equal(t, reviewerID, *article.ReviewerID, "reviewer survives resubmission")

	// Resubmission notifies the preserved reviewer, not the desk.
	last = notifier.events[len(notifier.events)-1]
	assert.Equal(t, reviewerID, last.Recipient)

	article, err = engine.Transition(ctx, workflow.TransitionInput{
		ArticleID: article.ID, Target: models.StatusUnderReview, ActorID: reviewerID,
	})
	require.NoError(t, err)

	var records []models.ReviewRecordModel
	require.NoError(t, db.Where("article_id = ?", article.ID).Order("created_at").Find(&records).Error)
	require.Len(t, records, 2, "one record per review cycle")
	assert.False(t, records[0].IsActive)
	assert.Equal(t, "needs sources", records[0].ReviewerNotes)
	assert.True(t, records[1].IsActive)
	assert.Equal(t, models.ReviewPending, records[1].Status)
}

func TestInvalidEdgesRejectedExhaustively(t *testing.T) {
	all := []models.ArticleStatus{
		models.StatusDraft,
		models.StatusSubmittedForReview,
		models.StatusUnderReview,
		models.StatusChangesRequested,
		models.StatusReadyForPublishing,
		models.StatusPublished,
		models.StatusRejected,
	}
	valid := map[models.ArticleStatus][]models.ArticleStatus{
		models.StatusDraft:              {models.StatusSubmittedForReview},
		models.StatusSubmittedForReview: {models.StatusUnderReview},
		models.StatusUnderReview:        {models.StatusChangesRequested, models.StatusReadyForPublishing, models.StatusRejected},
		models.StatusChangesRequested:   {models.StatusSubmittedForReview},
		models.StatusReadyForPublishing: {models.StatusPublished},
	}
	isValid := func(from, to models.ArticleStatus) bool {
		for _, v := range valid[from] {
			if v == to {
				return true
			}
		}
		return false
	}

	db := openTestDB(t)
	engine, _ := newEngine(t, db, testOracle())
	ctx := context.Background()

	for _, from := range all {
		for _, to := range all {
			if isValid(from, to) {
				continue
			}
			// The manager force-reject is the single sanctioned off-table edge.
			if to == models.StatusRejected && !from.Terminal() {
				continue
			}
			article := seedArticle(t, db, from, ptr(reviewerID), ptr(editorID))
			_, err := engine.Transition(ctx, workflow.TransitionInput{
				ArticleID: article.ID, Target: to, ActorID: managerID,
			})
			assert.ErrorIsf(t, err, workflow.ErrInvalidTransition, "%s -> %s must be invalid", from, to)

			var reloaded models.ArticleModel
			require.NoError(t, db.First(&reloaded, "id = ?", article.ID).Error)
			assert.Equalf(t, from, reloaded.Status, "%s -> %s must not mutate status", from, to)
		}
	}
}

func TestTransitionActorGating(t *testing.T) {
	cases := []struct {
		name     string
		from     models.ArticleStatus
		to       models.ArticleStatus
		reviewer *string
		editor   *string
		actor    string
	}{
		{"outsider cannot submit", models.StatusDraft, models.StatusSubmittedForReview, nil, nil, outsiderID},
		{"reviewer cannot submit for the author", models.StatusDraft, models.StatusSubmittedForReview, nil, nil, reviewerID},
		{"author cannot claim own review", models.StatusSubmittedForReview, models.StatusUnderReview, nil, nil, authorID},
		{"unassigned reviewer cannot request changes", models.StatusUnderReview, models.StatusChangesRequested, ptr(reviewerID), nil, reviewer2},
		{"author cannot approve own article", models.StatusUnderReview, models.StatusReadyForPublishing, ptr(reviewerID), nil, authorID},
		{"unassigned editor cannot publish", models.StatusReadyForPublishing, models.StatusPublished, ptr(reviewerID), ptr(editorID), reviewerID},
		{"outsider cannot resubmit", models.StatusChangesRequested, models.StatusSubmittedForReview, ptr(reviewerID), nil, outsiderID},
	}

	db := openTestDB(t)
	engine, _ := newEngine(t, db, testOracle())
	ctx := context.Background()

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			article := seedArticle(t, db, tc.from, tc.reviewer, tc.editor)
			_, err := engine.Transition(ctx, workflow.TransitionInput{
				ArticleID: article.ID, Target: tc.to, ActorID: tc.actor,
			})
			assert.ErrorIs(t, err, workflow.ErrForbidden)
		})
	}
}

func TestManagerForceReject(t *testing.T) {
	db := openTestDB(t)
	engine, _ := newEngine(t, db, testOracle())
	ctx := context.Background()

	for _, from := range []models.ArticleStatus{
		models.StatusDraft,
		models.StatusSubmittedForReview,
		models.StatusChangesRequested,
		models.StatusReadyForPublishing,
	} {
		article := seedArticle(t, db, from, nil, nil)
		got, err := engine.Transition(ctx, workflow.TransitionInput{
			ArticleID: article.ID, Target: models.StatusRejected, ActorID: managerID,
		})
		require.NoErrorf(t, err, "manager force-reject from %s", from)
		assert.Equal(t, models.StatusRejected, got.Status)
	}

	// Nobody below manager gets the override.
	article := seedArticle(t, db, models.StatusDraft, nil, nil)
	_, err := engine.Transition(ctx, workflow.TransitionInput{
		ArticleID: article.ID, Target: models.StatusRejected, ActorID: editorID,
	})
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	// Terminal states stay terminal even for managers.
	published := seedArticle(t, db, models.StatusPublished, nil, nil)
	_, err = engine.Transition(ctx, workflow.TransitionInput{
		ArticleID: published.ID, Target: models.StatusRejected, ActorID: managerID,
	})
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestManagerCannotForcePublish(t *testing.T) {
	db := openTestDB(t)
	engine, _ := newEngine(t, db, testOracle())

	article := seedArticle(t, db, models.StatusDraft, nil, nil)
	_, err := engine.Transition(context.Background(), workflow.TransitionInput{
		ArticleID: article.ID, Target: models.StatusPublished, ActorID: managerID,
	})
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestManagerAssignsReviewerOnClaim(t *testing.T) {
	db := openTestDB(t)
	engine, _ := newEngine(t, db, testOracle())
	ctx := context.Background()

	article := seedArticle(t, db, models.StatusSubmittedForReview, nil, nil)
	got, err := engine.Transition(ctx, workflow.TransitionInput{
		ArticleID: article.ID, Target: models.StatusUnderReview, ActorID: managerID, ReviewerID: reviewerID,
	})
	require.NoError(t, err)
	require.NotNil(t, got.ReviewerID)
	assert.Equal(t, reviewerID, *got.ReviewerID)

	// Non-managers may not assign someone else.
	other := seedArticle(t, db, models.StatusSubmittedForReview, nil, nil)
	_, err = engine.Transition(ctx, workflow.TransitionInput{
		ArticleID: other.ID, Target: models.StatusUnderReview, ActorID: reviewerID, ReviewerID: reviewer2,
	})
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	// The assignee must hold the reviewer role.
	third := seedArticle(t, db, models.StatusSubmittedForReview, nil, nil)
	_, err = engine.Transition(ctx, workflow.TransitionInput{
		ArticleID: third.ID, Target: models.StatusUnderReview, ActorID: managerID, ReviewerID: authorID,
	})
	assert.ErrorIs(t, err, workflow.ErrForbidden)
}

// racingOracle mutates the article between the engine's snapshot read and its
// guarded update, reproducing a concurrent transition deterministically.
type racingOracle struct {
	inner     roles.Oracle
	db        *gorm.DB
	articleID string
	fired     bool
}

func (o *racingOracle) Membership(ctx context.Context, userID string) (roles.Membership, error) {
	if !o.fired {
		o.fired = true
		err := o.db.Model(&models.ArticleModel{}).
			Where("id = ?", o.articleID).
			Updates(map[string]interface{}{
				"status":      models.StatusUnderReview,
				"reviewer_id": reviewer2,
			}).Error
		if err != nil {
			return roles.Membership{}, err
		}
	}
	return o.inner.Membership(ctx, userID)
}

func TestConcurrentTransitionLosesWithConflict(t *testing.T) {
	db := openTestDB(t)
	article := seedArticle(t, db, models.StatusSubmittedForReview, nil, nil)

	oracle := &racingOracle{inner: testOracle(), db: db, articleID: article.ID}
	engine, notifier := newEngine(t, db, oracle)

	_, err := engine.Transition(context.Background(), workflow.TransitionInput{
		ArticleID: article.ID, Target: models.StatusUnderReview, ActorID: reviewerID,
	})
	assert.ErrorIs(t, err, workflow.ErrConflictingTransition)
	assert.Empty(t, notifier.events, "a losing transition must not notify")

	var reloaded models.ArticleModel
	require.NoError(t, db.First(&reloaded, "id = ?", article.ID).Error)
	assert.Equal(t, models.StatusUnderReview, reloaded.Status)
	require.NotNil(t, reloaded.ReviewerID)
	assert.Equal(t, reviewer2, *reloaded.ReviewerID, "the winner's assignment stands")
}

func TestAssignReviewerArchivesDisplacedRecord(t *testing.T) {
	db := openTestDB(t)
	engine, notifier := newEngine(t, db, testOracle())
	ctx := context.Background()

	article := seedArticle(t, db, models.StatusUnderReview, ptr(reviewerID), nil)
	require.NoError(t, db.Create(&models.ReviewRecordModel{
		ArticleID:  article.ID,
		ReviewerID: reviewerID,
		Status:     models.ReviewInProgress,
		IsActive:   true,
		Lifecycle:  models.LifecycleActive,
	}).Error)

	got, err := engine.AssignReviewer(ctx, article.ID, managerID, reviewer2)
	require.NoError(t, err)
	require.NotNil(t, got.ReviewerID)
	assert.Equal(t, reviewer2, *got.ReviewerID)

	var displaced models.ReviewRecordModel
	require.NoError(t, db.Where("article_id = ? AND reviewer_id = ?", article.ID, reviewerID).First(&displaced).Error)
	assert.False(t, displaced.IsActive)
	assert.Equal(t, models.LifecycleArchived, displaced.Lifecycle)
	assert.NotNil(t, displaced.CompletedAt)

	var fresh models.ReviewRecordModel
	require.NoError(t, db.Where("article_id = ? AND reviewer_id = ? AND is_active = ?", article.ID, reviewer2, true).First(&fresh).Error)
	assert.Equal(t, models.ReviewPending, fresh.Status)

	last := notifier.events[len(notifier.events)-1]
	assert.Equal(t, workflow.VerbReviewerAssigned, last.Verb)
	assert.Equal(t, reviewer2, last.Recipient)
}

func TestAssignReviewerGating(t *testing.T) {
	db := openTestDB(t)
	engine, _ := newEngine(t, db, testOracle())
	ctx := context.Background()

	article := seedArticle(t, db, models.StatusSubmittedForReview, nil, nil)

	_, err := engine.AssignReviewer(ctx, article.ID, editorID, reviewerID)
	assert.ErrorIs(t, err, workflow.ErrForbidden, "non-manager cannot assign")

	_, err = engine.AssignReviewer(ctx, article.ID, managerID, editorID)
	assert.ErrorIs(t, err, workflow.ErrForbidden, "assignee must hold the reviewer role")

	terminal := seedArticle(t, db, models.StatusPublished, nil, nil)
	_, err = engine.AssignReviewer(ctx, terminal.ID, managerID, reviewerID)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition, "terminal articles are closed to assignment")
}

func TestTransitionUnknownArticleAndActor(t *testing.T) {
	db := openTestDB(t)
	engine, _ := newEngine(t, db, testOracle())
	ctx := context.Background()

	_, err := engine.Transition(ctx, workflow.TransitionInput{
		ArticleID: "00000000-0000-0000-0000-00000000dead",
		Target:    models.StatusSubmittedForReview,
		ActorID:   authorID,
	})
	assert.ErrorIs(t, err, workflow.ErrNotFound)

	article := seedArticle(t, db, models.StatusDraft, nil, nil)
	_, err = engine.Transition(ctx, workflow.TransitionInput{
		ArticleID: article.ID, Target: models.StatusSubmittedForReview, ActorID: "nobody",
	})
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	_, err = engine.Transition(ctx, workflow.TransitionInput{
		ArticleID: article.ID, Target: "archived", ActorID: authorID,
	})
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestApprovalKeepsRecordOpenUntilPublished(t *testing.T) {
	db := openTestDB(t)
	engine, _ := newEngine(t, db, testOracle())
	ctx := context.Background()

	article := seedArticle(t, db, models.StatusSubmittedForReview, nil, ptr(editorID))
	_, err := engine.Transition(ctx, workflow.TransitionInput{
		ArticleID: article.ID, Target: models.StatusUnderReview, ActorID: reviewerID,
	})
	require.NoError(t, err)

	_, err = engine.Transition(ctx, workflow.TransitionInput{
		ArticleID: article.ID, Target: models.StatusReadyForPublishing, ActorID: reviewerID, Notes: "ship it",
	})
	require.NoError(t, err)

	var record models.ReviewRecordModel
	require.NoError(t, db.First(&record, "article_id = ?", article.ID).Error)
	assert.True(t, record.IsActive, "record stays open while publication is pending")
	assert.NotEqual(t, models.ReviewCompleted, record.Status)
	assert.Nil(t, record.CompletedAt)
	assert.Equal(t, "ship it", record.ReviewerNotes)

	_, err = engine.Transition(ctx, workflow.TransitionInput{
		ArticleID: article.ID, Target: models.StatusPublished, ActorID: editorID,
	})
	require.NoError(t, err)

	require.NoError(t, db.First(&record, "id = ?", record.ID).Error)
	assert.False(t, record.IsActive)
	assert.Equal(t, models.ReviewCompleted, record.Status)
	require.NotNil(t, record.CompletedAt)
	assert.Equal(t, "ship it", record.ReviewerNotes)
}

// flippingOracle runs a hook on the first membership lookup, after the engine
// has taken its article snapshot.
type flippingOracle struct {
	inner roles.Oracle
	fired bool
	hook  func()
}

func (o *flippingOracle) Membership(ctx context.Context, userID string) (roles.Membership, error) {
	if !o.fired {
		o.fired = true
		o.hook()
	}
	return o.inner.Membership(ctx, userID)
}

func TestTransitionSurvivesPostCommitReadFailure(t *testing.T) {
	db := openTestDB(t)
	article := seedArticle(t, db, models.StatusSubmittedForReview, nil, nil)

	// Once armed, every article read fails while writes keep working.
	blockReads := false
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("article_read_outage", func(tx *gorm.DB) {
		if !blockReads {
			return
		}
		if _, ok := tx.Statement.Dest.(*models.ArticleModel); ok {
			_ = tx.AddError(gorm.ErrInvalidDB)
		}
	}))

	oracle := &flippingOracle{inner: testOracle(), hook: func() { blockReads = true }}
	engine, notifier := newEngine(t, db, oracle)

	got, err := engine.Transition(context.Background(), workflow.TransitionInput{
		ArticleID: article.ID, Target: models.StatusUnderReview, ActorID: reviewerID,
	})
	require.NoError(t, err, "a committed transition must not surface as an error")
	assert.Equal(t, models.StatusUnderReview, got.Status)
	require.NotNil(t, got.ReviewerID)
	assert.Equal(t, reviewerID, *got.ReviewerID)

	require.Len(t, notifier.events, 1, "the event for a committed transition is never lost")
	assert.Equal(t, workflow.VerbReviewClaimed, notifier.events[0].Verb)
	assert.Equal(t, authorID, notifier.events[0].Recipient)

	blockReads = false
	var persisted models.ArticleModel
	require.NoError(t, db.First(&persisted, "id = ?", article.ID).Error)
	assert.Equal(t, models.StatusUnderReview, persisted.Status)
}
