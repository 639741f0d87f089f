package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/recall/pkg/memory"
)

const (
	// HeaderUser carries the owner's user id. Required on /v1 routes.
	HeaderUser = "X-Recall-User"

	// HeaderProject carries the owner's optional project id.
	HeaderProject = "X-Recall-Project"

	scopeKey = "recall.scope"
)

// requireOwner resolves the owner scope from request headers.
func (s *Server) requireOwner(c *fiber.Ctx) error {
	scope := memory.OwnerScope{
		UserID:    strings.TrimSpace(c.Get(HeaderUser)),
		ProjectID: strings.TrimSpace(c.Get(HeaderProject)),
	}
	if err := scope.Validate(); err != nil {
		return s.fail(c, err)
	}

	c.Locals(scopeKey, scope)
	return c.Next()
}

func ownerOf(c *fiber.Ctx) memory.OwnerScope {
	scope, _ := c.Locals(scopeKey).(memory.OwnerScope)
	return scope
}
