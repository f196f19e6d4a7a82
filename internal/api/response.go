package api

import "github.com/gofiber/fiber/v2"

// SuccessResponse is the {ok:true,data} envelope.
type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data"`
}

// ErrorResponse is the {ok:false,error} envelope.
type ErrorResponse struct {
	OK    bool      `json:"ok"`
	Error *AppError `json:"error"`
}

func respond(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(SuccessResponse{OK: true, Data: data})
}
