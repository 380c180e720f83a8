package middleware_test

import (
	"net/http/httptest"
	"testing"

	"bed-booking-service/internal/module/booking/mocks"
	"bed-booking-service/internal/module/booking/models/response"
	"bed-booking-service/internal/pkg/errors"
	log_internal "bed-booking-service/internal/pkg/log"
	"bed-booking-service/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestValidateToken(t *testing.T) {
	identity := &mocks.Identity{}
	m := middleware.Middleware{Log: log_internal.Setup(), Identity: identity}

	app := fiber.New()
	app.Get("/api/private/beds", m.ValidateToken, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(int64)
		role, _ := c.Locals("role").(string)
		return c.JSON(fiber.Map{"user_id": userID, "role": role})
	})

	identity.On("ValidateToken", mock.Anything, "good").Return(response.UserServiceValidate{IsValid: true, UserID: 42, Role: "staff"}, nil)
	identity.On("ValidateToken", mock.Anything, "revoked").Return(response.UserServiceValidate{IsValid: false}, nil)
	identity.On("ValidateToken", mock.Anything, "unreachable").Return(response.UserServiceValidate{}, errors.InternalServerError("user service down"))

	testCases := []struct {
		name   string
		header string
		status int
	}{
		{name: "valid token", header: "Bearer good", status: fiber.StatusOK},
		{name: "missing header", header: "", status: fiber.StatusUnauthorized},
		{name: "not a bearer token", header: "Basic Zm9vOmJhcg==", status: fiber.StatusUnauthorized},
		{name: "empty bearer token", header: "Bearer  ", status: fiber.StatusUnauthorized},
		{name: "revoked token", header: "Bearer revoked", status: fiber.StatusUnauthorized},
		{name: "user service down", header: "Bearer unreachable", status: fiber.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/private/beds", nil)
			if tc.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tc.header)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}

	identity.AssertNumberOfCalls(t, "ValidateToken", 3)
}

func TestRequireRole(t *testing.T) {
	m := middleware.Middleware{Log: log_internal.Setup()}

	app := fiber.New()
	app.Post("/api/private/bookings/:id/payments", func(c *fiber.Ctx) error {
		c.Locals("role", c.Get("X-Role"))
		return c.Next()
	}, m.RequireRole(middleware.RoleGateway, middleware.RoleStaff), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for role, status := range map[string]int{
		middleware.RoleGateway: fiber.StatusOK,
		middleware.RoleStaff:   fiber.StatusOK,
		middleware.RolePilgrim: fiber.StatusForbidden,
		"":                     fiber.StatusForbidden,
	} {
		req := httptest.NewRequest("POST", "/api/private/bookings/7/payments", nil)
		req.Header.Set("X-Role", role)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, status, resp.StatusCode, role)
	}
}
