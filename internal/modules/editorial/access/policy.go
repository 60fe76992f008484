package access

import (
	"github.com/inkpress/core/internal/models"
	"github.com/inkpress/core/internal/modules/editorial/roles"
)

// Level is the permission a user holds on an article. It gates both editing
// and collaborative-session authorization.
type Level int

const (
	None Level = iota
	Read
	Write
)

func (l Level) String() string {
	switch l {
	case Write:
		return "write"
	case Read:
		return "read"
	default:
		return "none"
	}
}

// PermissionLevel computes the permission for a (membership, article) snapshot.
// It is a pure function of its inputs and is recomputed on every read.
func PermissionLevel(m roles.Membership, a *models.ArticleModel) Level {
	level := baseLevel(m, a)

	// Managers always get at least read access for audit, and write access
	// when the status's designated actor is unassigned, so an article can
	// never deadlock with nobody able to act on it.
	if m.IsManager() {
		if level < Read {
			level = Read
		}
		if level < Write && designatedActorUnset(a) {
			level = Write
		}
	}
	return level
}

// baseLevel evaluates the status rules in order; first match wins.
func baseLevel(m roles.Membership, a *models.ArticleModel) Level {
	isAuthor := m.UserID == a.AuthorID
	isReviewer := a.ReviewerID != nil && *a.ReviewerID == m.UserID
	isEditor := a.EditorID != nil && *a.EditorID == m.UserID

	switch a.Status {
	case models.StatusDraft, models.StatusChangesRequested:
		if isAuthor {
			return Write
		}

	case models.StatusSubmittedForReview, models.StatusUnderReview:
		if isReviewer {
			return Write
		}
		if isAuthor {
			return Read
		}

	case models.StatusReadyForPublishing:
		if isEditor {
			return Write
		}
		if isAuthor || isReviewer {
			return Read
		}

	case models.StatusPublished:
		// Editor view only; public readers go through the public surface.
		if isAuthor {
			return Read
		}

	case models.StatusRejected:
		if isAuthor {
			return Read
		}
	}
	return None
}

// designatedActorUnset reports whether the status's responsible actor slot is
// empty (no reviewer while in review, no editor while awaiting publication).
func designatedActorUnset(a *models.ArticleModel) bool {
	switch a.Status {
	case models.StatusSubmittedForReview, models.StatusUnderReview:
		return a.ReviewerID == nil
	case models.StatusReadyForPublishing:
		return a.EditorID == nil
	}
	return false
}
