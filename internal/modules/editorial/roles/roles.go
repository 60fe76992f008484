package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/inkpress/core/internal/models"
	"gorm.io/gorm"
)

// Role is a named editorial group a user may belong to. The manager capability
// is the separate admin flag, not a group.
type Role string

const (
	RoleContributor Role = "contributor"
	RoleReviewer    Role = "reviewer"
	RoleEditor      Role = "editor"
)

// All lists the registered roles.
func All() []Role {
	return []Role{RoleContributor, RoleReviewer, RoleEditor}
}

// Known reports whether r is a registered role.
func Known(r Role) bool {
	switch r {
	case RoleContributor, RoleReviewer, RoleEditor:
		return true
	}
	return false
}

// Membership is a read-only snapshot of a user's capabilities.
type Membership struct {
	UserID string
	Roles  []Role
	Admin  bool
}

// Has reports whether the membership includes the given role.
func (m Membership) Has(r Role) bool {
	for _, v := range m.Roles {
		if v == r {
			return true
		}
	}
	return false
}

// IsManager reports the manager/admin capability.
func (m Membership) IsManager() bool { return m.Admin }

// ErrUnknownUser is returned when the oracle cannot resolve a user id.
var ErrUnknownUser = errors.New("roles: unknown user")

// Oracle resolves role membership for a user. It is injected into the workflow
// engine and handlers so that the state machine stays testable with fixed
// role sets.
type Oracle interface {
	Membership(ctx context.Context, userID string) (Membership, error)
}

type dbOracle struct {
	db *gorm.DB
}

// NewOracle returns an Oracle backed by the users table.
func NewOracle(db *gorm.DB) Oracle {
	return &dbOracle{db: db}
}

func (o *dbOracle) Membership(ctx context.Context, userID string) (Membership, error) {
	if userID == "" {
		return Membership{}, ErrUnknownUser
	}
	var user models.UserModel
	err := o.db.WithContext(ctx).
		Select("id, roles, is_admin").
		First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Membership{}, ErrUnknownUser
	}
	if err != nil {
		return Membership{}, fmt.Errorf("roles: lookup user: %w", err)
	}

	m := Membership{UserID: user.ID, Admin: user.IsAdmin}
	for _, name := range user.Roles {
		r := Role(name)
		if Known(r) {
			m.Roles = append(m.Roles, r)
		}
	}
	return m, nil
}

// Static is a fixed in-memory Oracle for tests.
type Static map[string]Membership

func (s Static) Membership(_ context.Context, userID string) (Membership, error) {
	m, ok := s[userID]
	if !ok {
		return Membership{}, ErrUnknownUser
	}
	return m, nil
}
