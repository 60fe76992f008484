package workflow

import (
	"github.com/inkpress/core/internal/models"
	"github.com/inkpress/core/internal/modules/editorial/roles"
)

// actorRule names who may trigger a given edge.
type actorRule int

const (
	// actorAuthor: the article's author.
	actorAuthor actorRule = iota
	// actorClaim: a reviewer claiming for themselves, or a manager assigning one.
	actorClaim
	// actorAssignedReviewer: the currently assigned reviewer.
	actorAssignedReviewer
	// actorEditorOrManager: the assigned editor, or any manager.
	actorEditorOrManager
)

// transitions is the edge table of the editorial state machine. An edge absent
// here is invalid, with one exception checked separately: a manager may force
// any non-terminal article to rejected.
var transitions = map[models.ArticleStatus]map[models.ArticleStatus]actorRule{
	models.StatusDraft: {
		models.StatusSubmittedForReview: actorAuthor,
	},
	models.StatusSubmittedForReview: {
		models.StatusUnderReview: actorClaim,
	},
	models.StatusUnderReview: {
		models.StatusChangesRequested:   actorAssignedReviewer,
		models.StatusReadyForPublishing: actorAssignedReviewer,
		models.StatusRejected:           actorAssignedReviewer,
	},
	models.StatusChangesRequested: {
		models.StatusSubmittedForReview: actorAuthor,
	},
	models.StatusReadyForPublishing: {
		models.StatusPublished: actorEditorOrManager,
	},
}

// edgeRule looks up the rule for (from, to).
func edgeRule(from, to models.ArticleStatus) (actorRule, bool) {
	targets, ok := transitions[from]
	if !ok {
		return 0, false
	}
	rule, ok := targets[to]
	return rule, ok
}

// AllowedTargets returns the statuses reachable from the given one through the
// edge table (the manager force-reject override is not listed).
func AllowedTargets(from models.ArticleStatus) []models.ArticleStatus {
	targets, ok := transitions[from]
	if !ok {
		return nil
	}
	out := make([]models.ArticleStatus, 0, len(targets))
	for to := range targets {
		out = append(out, to)
	}
	return out
}

// managerOverride reports whether the membership may force this edge outside
// the table: managers may reject any non-terminal article.
func managerOverride(m roles.Membership, from, to models.ArticleStatus) bool {
	return m.IsManager() && to == models.StatusRejected && !from.Terminal()
}

// satisfies reports whether the membership matches the rule for the article's
// current assignments.
func satisfies(rule actorRule, m roles.Membership, a *models.ArticleModel) bool {
	switch rule {
	case actorAuthor:
		return m.UserID == a.AuthorID
	case actorClaim:
		return m.Has(roles.RoleReviewer) || m.IsManager()
	case actorAssignedReviewer:
		return a.ReviewerID != nil && *a.ReviewerID == m.UserID
	case actorEditorOrManager:
		if m.IsManager() {
			return true
		}
		return a.EditorID != nil && *a.EditorID == m.UserID
	}
	return false
}
