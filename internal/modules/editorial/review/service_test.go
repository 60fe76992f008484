package review_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inkpress/core/internal/database"
	"github.com/inkpress/core/internal/models"
	"github.com/inkpress/core/internal/modules/editorial/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	authorID   = "00000000-0000-0000-0000-0000000000a1"
	reviewerID = "00000000-0000-0000-0000-0000000000b1"
)

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

func seedRecord(t *testing.T, db *gorm.DB, status models.ReviewStatus, active bool, lifecycle models.Lifecycle) *models.ReviewRecordModel {
	t.Helper()
	article := &models.ArticleModel{
		Title:    "Fixture",
		Slug:     "fixture-" + uuid.NewString()[:8],
		Status:   models.StatusUnderReview,
		AuthorID: authorID,
	}
	require.NoError(t, db.Create(article).Error)

	record := &models.ReviewRecordModel{
		ArticleID:     article.ID,
		ReviewerID:    reviewerID,
		Status:        status,
		ReviewerNotes: "private notes",
		StartedAt:     time.Now(),
		IsActive:      active,
		Lifecycle:     lifecycle,
	}
	require.NoError(t, db.Create(record).Error)
	return record
}

func TestAssignedQueryScoping(t *testing.T) {
	db := openTestDB(t)
	svc := review.NewService(db)
	ctx := context.Background()

	seedRecord(t, db, models.ReviewPending, true, models.LifecycleActive)
	seedRecord(t, db, models.ReviewCompleted, false, models.LifecycleActive)
	seedRecord(t, db, models.ReviewInProgress, true, models.LifecycleArchived)

	var all []models.ReviewRecordModel
	require.NoError(t, svc.AssignedQuery(ctx, reviewerID, "").Find(&all).Error)
	assert.Len(t, all, 2, "archived records are excluded")

	var pending []models.ReviewRecordModel
	require.NoError(t, svc.AssignedQuery(ctx, reviewerID, models.ReviewPending).Find(&pending).Error)
	require.Len(t, pending, 1)
	assert.Equal(t, models.ReviewPending, pending[0].Status)

	var other []models.ReviewRecordModel
	require.NoError(t, svc.AssignedQuery(ctx, "somebody-else", "").Find(&other).Error)
	assert.Empty(t, other)
}

func TestGetPreloadsArticleAndSurfacesArchived(t *testing.T) {
	db := openTestDB(t)
	svc := review.NewService(db)
	ctx := context.Background()

	record := seedRecord(t, db, models.ReviewCompleted, false, models.LifecycleArchived)

	got, err := svc.Get(ctx, record.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Article)
	assert.Equal(t, authorID, got.Article.AuthorID)

	_, err = svc.Get(ctx, "00000000-0000-0000-0000-00000000dead")
	assert.ErrorIs(t, err, review.ErrNotFound)
}

func TestDetailRedactsNotesForNonReviewer(t *testing.T) {
	record := &models.ReviewRecordModel{
		Base:          models.Base{ID: "r-1"},
		ArticleID:     "a-1",
		ReviewerID:    reviewerID,
		Status:        models.ReviewInProgress,
		ReviewerNotes: "weak methodology section",
		IsActive:      true,
	}

	asReviewer := review.NewDetail(record, reviewerID)
	require.NotNil(t, asReviewer.ReviewerNotes)
	assert.Equal(t, "weak methodology section", *asReviewer.ReviewerNotes)

	asAuthor := review.NewDetail(record, authorID)
	assert.Nil(t, asAuthor.ReviewerNotes, "the author never sees reviewer notes")

	asManager := review.NewDetail(record, "some-manager")
	assert.Nil(t, asManager.ReviewerNotes)
}
