package router

import (
	"net/http"

	"bed-booking-service/internal/module/booking/handler"
	"bed-booking-service/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// Initialize mounts every route. monitoring may be nil to leave the queue UI off.
func Initialize(app *fiber.App, handlerBooking *handler.BookingHandler, m *middleware.Middleware, monitoring http.Handler) *fiber.App {

	// health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("OK")
	})

	if monitoring != nil {
		app.All("/monitoring/*", adaptor.HTTPHandler(monitoring))
	}

	Api := app.Group("/api")

	// public routes
	v1 := Api.Group("/v1")
	v1.Get("/availability", handlerBooking.Availability)

	// pilgrim routes, ownership is checked per booking
	v1.Post("/bookings", m.ValidateToken, handlerBooking.Allocate)
	v1.Get("/bookings/:id", m.ValidateToken, handlerBooking.GetBooking)
	v1.Post("/bookings/:id/cancel", m.ValidateToken, handlerBooking.Cancel)
	v1.Post("/bookings/:id/payment", m.ValidateToken, handlerBooking.InitiatePayment)

	// staff and payment gateway routes
	private := Api.Group("/private", m.ValidateToken)
	staff := m.RequireRole(middleware.RoleStaff)
	private.Post("/bookings/:id/payments", m.RequireRole(middleware.RoleGateway, middleware.RoleStaff), handlerBooking.RecordPayment)
	private.Post("/bookings/:id/check-in", staff, handlerBooking.CheckIn)
	private.Post("/bookings/:id/check-out", staff, handlerBooking.CheckOut)
	private.Post("/bookings/:id/no-show", staff, handlerBooking.MarkNoShow)
	private.Post("/bookings/:id/cancel", staff, handlerBooking.Cancel)
	private.Get("/beds", staff, handlerBooking.ListBeds)
	private.Post("/beds", staff, handlerBooking.RegisterBed)
	private.Patch("/beds/:id/status", staff, handlerBooking.SetBedStatus)
	private.Post("/sweeps", staff, handlerBooking.Sweep)

	return app

}
