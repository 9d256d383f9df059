package auth

import (
	"github.com/amirasaad/valutatrade/pkg/app"
	"github.com/amirasaad/valutatrade/webapi/common"
	"github.com/gofiber/fiber/v2"
)

// RegisterInput represents the request body for user registration.
type RegisterInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=4"`
}

// LoginInput represents the request body for user authentication.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserOutput is the public view of a user.
type UserOutput struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func Routes(fiberApp *fiber.App, a *app.App) {
	fiberApp.Post("/auth/register", Register(a))
	fiberApp.Post("/auth/login", Login(a))
}

// Register creates a user with an empty portfolio.
func Register(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[RegisterInput](c)
		if input == nil {
			return err // Error already written by BindAndValidate
		}
		u, err := a.Register(c.UserContext(), input.Username, input.Password)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Registration failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "User registered",
			UserOutput{ID: u.ID.String(), Username: u.Username})
	}
}

// Login handles user authentication and returns a JWT token.
func Login(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[LoginInput](c)
		if input == nil {
			return err
		}
		u, err := a.Login(c.UserContext(), input.Username, input.Password)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid username or password", err, fiber.StatusUnauthorized)
		}
		token, err := a.AuthService.GenerateToken(u)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Success login", fiber.Map{"token": token})
	}
}
