package access

import "github.com/inkpress/core/internal/models"

// Mentionable returns the user ids permitted to be @mentioned in the review
// discussion of an article. Discussion is only surfaced while the author is
// being asked to act (changes requested) or after rejection; every other stage
// returns an empty set.
func Mentionable(a *models.ArticleModel) []string {
	switch a.Status {
	case models.StatusChangesRequested, models.StatusRejected:
	default:
		return []string{}
	}

	ids := []string{a.AuthorID}
	if a.ReviewerID != nil && *a.ReviewerID != a.AuthorID {
		ids = append(ids, *a.ReviewerID)
	}
	return ids
}
