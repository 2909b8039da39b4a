package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/homease/homease-backend/api/responses"
	"github.com/homease/homease-backend/api/validators"
	"github.com/homease/homease-backend/internal/roles"
	"github.com/homease/homease-backend/pkg/enums"
	pkgerrors "github.com/homease/homease-backend/pkg/errors"
	"github.com/homease/homease-backend/pkg/logger"
)

type adminRoleOverrideRequest struct {
	Role string `json:"role" validate:"required,oneof=homeowner contractor admin"`
}

// AdminUserRoleOverride sets a user's role directly, consuming any pending
// role assignment.
func AdminUserRoleOverride(engine *roles.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "role engine unavailable"))
			return
		}

		userID, err := uuid.Parse(chi.URLParam(r, "userId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid user id"))
			return
		}

		var body adminRoleOverrideRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role, err := enums.ParseRole(body.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role"))
			return
		}

		if err := engine.Override(r.Context(), userID, role); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{
			"user_id": userID.String(),
			"role":    role.String(),
		})
	}
}
