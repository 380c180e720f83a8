package middleware

import (
	"fmt"
	"strings"

	"bed-booking-service/internal/module/booking/repositories"
	"bed-booking-service/internal/pkg/errors"
	"bed-booking-service/internal/pkg/helpers"

	"github.com/gofiber/fiber/v2"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

// Roles issued by the user service.
const (
	RolePilgrim = "pilgrim"
	RoleStaff   = "staff"
	RoleGateway = "payment_gateway"
)

type Middleware struct {
	Log      *otelzap.Logger
	Identity repositories.Identity
}

// ValidateToken guards every booking route. The bearer token is checked against the
// user service and the resolved user id and role are stored in the user_id and role locals.
func (m *Middleware) ValidateToken(ctx *fiber.Ctx) error {
	auth := ctx.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		m.Log.Ctx(ctx.UserContext()).Error("error get token from header")
		return helpers.RespError(ctx, m.Log, errors.UnauthorizedError("missing bearer token"))
	}

	resp, err := m.Identity.ValidateToken(ctx.UserContext(), token)
	if err != nil {
		m.Log.Ctx(ctx.UserContext()).Error(fmt.Sprintf("error validate token: %v", err))
		return helpers.RespError(ctx, m.Log, errors.UnauthorizedError("error validate token"))
	}

	if !resp.IsValid {
		m.Log.Ctx(ctx.UserContext()).Error("error validate token")
		return helpers.RespError(ctx, m.Log, errors.UnauthorizedError("error validate token"))
	}

	ctx.Locals("user_id", resp.UserID)
	ctx.Locals("role", resp.Role)

	return ctx.Next()
}

// RequireRole must run after ValidateToken. It rejects callers whose role is not listed.
func (m *Middleware) RequireRole(roles ...string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		role, _ := ctx.Locals("role").(string)
		for _, r := range roles {
			if role == r {
				return ctx.Next()
			}
		}
		m.Log.Ctx(ctx.UserContext()).Error(fmt.Sprintf("role %q not allowed on %s", role, ctx.Path()))
		return helpers.RespError(ctx, m.Log, errors.Forbidden("not allowed for this role"))
	}
}
