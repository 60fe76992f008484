package workflow

import (
	"errors"
	"fmt"

	"github.com/inkpress/core/internal/models"
)

// Workflow error taxonomy. Handlers match with errors.Is and translate to the
// HTTP envelope: ErrInvalidTransition/ErrConflictingTransition map to 409,
// ErrForbidden to 403, ErrNotFound to 404.
var (
	ErrInvalidTransition     = errors.New("invalid transition")
	ErrForbidden             = errors.New("actor not allowed for this transition")
	ErrConflictingTransition = errors.New("article was modified concurrently, refetch and retry")
	ErrNotFound              = errors.New("article not found")
)

func invalidTransition(from, to models.ArticleStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

func forbidden(actor string, to models.ArticleStatus) error {
	return fmt.Errorf("%w: actor %s may not move article to %s", ErrForbidden, actor, to)
}
