package auth

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/campusai/campus/pkg/apierr"
	"github.com/campusai/campus/pkg/llm"
)

// SessionKey is the fiber locals key holding the *Session.
const SessionKey = "campus.session"

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. The scheme is case-insensitive.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Middleware rejects requests without a valid bearer token and stores the
// caller's Session in the fiber locals.
func Middleware(v Validator, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := BearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return reject(c, apierr.New(apierr.KindAuthenticationRequired, ""))
		}

		session, err := v.Validate(c.UserContext(), token)
		if err != nil {
			log.Debug("rejected bearer token", "path", c.Path(), "error", err)
			return reject(c, apierr.As(err))
		}

		c.Locals(SessionKey, session)
		return c.Next()
	}
}

// SessionFrom returns the Session stored by Middleware.
func SessionFrom(c *fiber.Ctx) (*Session, bool) {
	s, ok := c.Locals(SessionKey).(*Session)
	return s, ok
}

func reject(c *fiber.Ctx, e *apierr.Error) error {
	if e.Kind != apierr.KindAuthenticationRequired {
		e = apierr.New(apierr.KindAuthenticationRequired, "")
	}
	return c.Status(e.Status()).JSON(llm.ErrorResponse{
		Error: e.UserMessage(),
		Code:  string(e.Kind),
	})
}
