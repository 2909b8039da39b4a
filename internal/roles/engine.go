package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/homease/homease-backend/pkg/db/models"
	"github.com/homease/homease-backend/pkg/enums"
	pkgerrors "github.com/homease/homease-backend/pkg/errors"
	"github.com/homease/homease-backend/pkg/logger"
)

type repository interface {
	FindPending(ctx context.Context, userID uuid.UUID) (*models.PendingRoleAssignment, error)
	DeletePending(ctx context.Context, userID uuid.UUID) error
	SetUserRole(ctx context.Context, userID uuid.UUID, role enums.Role) error
	EnsureContractorProfile(ctx context.Context, userID uuid.UUID) error
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Engine applies the requested role to a user. It consumes the pending
// assignment row exactly once and never leaves a user without a role.
type Engine struct {
	repo repository
	logg *logger.Logger
}

// NewEngine constructs the role assignment engine.
func NewEngine(repo repository, logg *logger.Logger) (*Engine, error) {
	if repo == nil {
		return nil, errors.New("roles repository is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Engine{repo: repo, logg: logg}, nil
}

// Assign reads the pending role for the user, validates it, writes the
// users.role column, and deletes the pending row. A missing pending row
// defaults to homeowner; an invalid role is coerced to homeowner with a
// warning. If the role write fails a fallback write to homeowner is
// attempted so the user is never left without a role.
func (e *Engine) Assign(ctx context.Context, userID uuid.UUID) error {
	logCtx := e.logg.WithUserID(ctx, userID.String())

	role := enums.RoleHomeowner
	hadPending := false

	pending, err := e.repo.FindPending(ctx, userID)
	switch {
	case err == nil:
		hadPending = true
		parsed, parseErr := enums.ParseRole(pending.Role)
		if parseErr != nil {
			e.logg.Warn(e.logg.WithField(logCtx, "requested_role", pending.Role),
				"invalid requested role, defaulting to homeowner")
		} else {
			role = parsed
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		e.logg.Warn(logCtx, "no pending role assignment found, defaulting to homeowner")
	default:
		return fmt.Errorf("load pending role: %w", err)
	}

	logCtx = e.logg.WithField(logCtx, "role", role.String())

	if err := e.applyRole(ctx, userID, role); err != nil {
		e.logg.Error(logCtx, "failed to apply role", err)
		if role != enums.RoleHomeowner {
			if fallbackErr := e.applyRole(ctx, userID, enums.RoleHomeowner); fallbackErr != nil {
				e.logg.Error(logCtx, "fallback role assignment failed", fallbackErr)
				return fmt.Errorf("apply role: %w", err)
			}
			e.logg.Warn(logCtx, "fell back to homeowner role")
		} else {
			return fmt.Errorf("apply role: %w", err)
		}
	}

	if hadPending {
		if err := e.repo.DeletePending(ctx, userID); err != nil {
			return fmt.Errorf("delete pending role: %w", err)
		}
	}

	e.logg.Info(logCtx, "role assigned")
	return nil
}

// Override applies a role directly, bypassing the pending-assignment flow.
// Any stale pending row for the user is consumed so a later event cannot
// undo the override.
func (e *Engine) Override(ctx context.Context, userID uuid.UUID, role enums.Role) error {
	exists, err := e.repo.UserExists(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	if err := e.applyRole(ctx, userID, role); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply role")
	}
	if err := e.repo.DeletePending(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete pending role")
	}

	logCtx := e.logg.WithField(e.logg.WithUserID(ctx, userID.String()), "role", role.String())
	e.logg.Info(logCtx, "role overridden")
	return nil
}

func (e *Engine) applyRole(ctx context.Context, userID uuid.UUID, role enums.Role) error {
	if err := e.repo.SetUserRole(ctx, userID, role); err != nil {
		return err
	}
	if role == enums.RoleContractor {
		if err := e.repo.EnsureContractorProfile(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}
