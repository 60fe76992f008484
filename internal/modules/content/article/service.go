package article

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/inkpress/core/internal/models"
	"github.com/inkpress/core/internal/modules/editorial/roles"
	"gorm.io/gorm"
)

// ErrNotFound is returned when an article id does not resolve.
var ErrNotFound = errors.New("article not found")

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create opens a new draft owned by the author.
func (s *Service) Create(ctx context.Context, authorID string, dto *CreateArticleDTO) (*models.ArticleModel, error) {
	a := models.ArticleModel{
		Title:      strings.TrimSpace(dto.Title),
		Slug:       s.uniqueSlug(ctx, dto.Title),
		Text:       dto.Text,
		Summary:    dto.Summary,
		Status:     models.StatusDraft,
		AuthorID:   authorID,
		CategoryID: dto.CategoryID,
		Tags:       dto.Tags,
	}
	if err := s.db.WithContext(ctx).Create(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// Get loads one article with its relations.
func (s *Service) Get(ctx context.Context, id string) (*models.ArticleModel, error) {
	var a models.ArticleModel
	err := s.db.WithContext(ctx).
		Preload("Category").
		First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Update patches content fields. The caller has already checked write
// permission; the status column is deliberately untouchable from here.
func (s *Service) Update(ctx context.Context, a *models.ArticleModel, dto *UpdateArticleDTO) (*models.ArticleModel, error) {
	updates := map[string]interface{}{}
	if dto.Title != nil {
		updates["title"] = strings.TrimSpace(*dto.Title)
	}
	if dto.Text != nil {
		updates["text"] = *dto.Text
	}
	if dto.Summary != nil {
		updates["summary"] = *dto.Summary
	}
	if dto.CategoryID != nil {
		updates["category_id"] = *dto.CategoryID
	}
	if dto.Tags != nil {
		updates["tags"] = models.StringArray(dto.Tags)
	}
	if dto.IsFeatured != nil {
		updates["is_featured"] = *dto.IsFeatured
	}
	if len(updates) == 0 {
		return a, nil
	}
	if err := s.db.WithContext(ctx).Model(a).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, a.ID)
}

// VisibleQuery scopes listing to what the membership may see: everything for
// managers, published articles for everyone, plus whatever the user authors,
// reviews, or edits.
func (s *Service) VisibleQuery(ctx context.Context, m roles.Membership) *gorm.DB {
	q := s.db.WithContext(ctx).
		Model(&models.ArticleModel{}).
		Order("created_at DESC")
	if m.IsManager() {
		return q
	}
	return q.Where(
		"status = ? OR author_id = ? OR reviewer_id = ? OR editor_id = ?",
		models.StatusPublished, m.UserID, m.UserID, m.UserID,
	)
}

// SoftDelete archives an article. The workflow never hard-deletes.
func (s *Service) SoftDelete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&models.ArticleModel{}, "id = ?", id).Error
}

var slugStripPattern = regexp.MustCompile(`[^a-z0-9]+`)

// uniqueSlug derives a URL slug from the title, suffixing a short random token
// when the natural slug is taken.
func (s *Service) uniqueSlug(ctx context.Context, title string) string {
	slug := strings.Trim(slugStripPattern.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if slug == "" {
		slug = "untitled"
	}

	var count int64
	s.db.WithContext(ctx).
		Model(&models.ArticleModel{}).
		Where("slug = ?", slug).
		Count(&count)
	if count == 0 {
		return slug
	}
	return fmt.Sprintf("%s-%s", slug, uuid.New().String()[:8])
}
