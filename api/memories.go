package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/recall/pkg/memory/dedup"
	"github.com/papercomputeco/recall/pkg/memory/engine"
)

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleAdd handles POST /v1/memories. It responds 201 when a memory was
// stored and 200 when an existing memory was skipped or merged.
func (s *Server) handleAdd(c *fiber.Ctx) error {
	var req engine.AddRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	result, err := s.memories.Add(c.Context(), ownerOf(c), req)
	if err != nil {
		return s.fail(c, err)
	}

	status := fiber.StatusOK
	if result.Action == dedup.ActionAdded {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(result)
}

// handleSearch handles GET /v1/memories/search.
// Query parameters (all optional):
//   - query: text ranked by similarity; empty lists newest first
//   - tags, people: comma-separated lists
//   - match_all: require every tag
//   - topic, temporal
//   - limit: positive integer (default 10)
//   - threshold: minimum similarity in [0, 1]
func (s *Server) handleSearch(c *fiber.Ctx) error {
	limit, err := queryLimit(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	req := engine.SearchRequest{
		Query:    c.Query("query"),
		Tags:     queryList(c, "tags"),
		MatchAll: c.QueryBool("match_all"),
		People:   queryList(c, "people"),
		Topic:    c.Query("topic"),
		Temporal: c.Query("temporal"),
		Limit:    limit,
	}

	if raw := c.Query("threshold"); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return badRequest(c, "threshold must be a number")
		}
		req.Threshold = &t
	}

	resp, err := s.memories.Search(c.Context(), ownerOf(c), req)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(resp)
}

// handleTemporal handles GET /v1/memories/temporal/:expr.
func (s *Server) handleTemporal(c *fiber.Ctx) error {
	limit, err := queryLimit(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := s.memories.TemporalSearch(c.Context(), ownerOf(c), c.Params("expr"), c.Query("query"), limit)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(resp)
}

// handleTags handles GET /v1/memories/tags/:tags where :tags is a
// comma-separated list.
func (s *Server) handleTags(c *fiber.Ctx) error {
	limit, err := queryLimit(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := s.memories.SearchByTags(c.Context(), ownerOf(c),
		[]string{c.Params("tags")}, c.QueryBool("match_all"), c.Query("query"), limit)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(resp)
}

// handlePeople handles GET /v1/memories/people/:people.
func (s *Server) handlePeople(c *fiber.Ctx) error {
	limit, err := queryLimit(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := s.memories.SearchByPeople(c.Context(), ownerOf(c),
		[]string{c.Params("people")}, c.Query("query"), limit)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(resp)
}

// handleTopic handles GET /v1/memories/topic/:topic.
func (s *Server) handleTopic(c *fiber.Ctx) error {
	limit, err := queryLimit(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := s.memories.SearchByTopic(c.Context(), ownerOf(c), c.Params("topic"), c.Query("query"), limit)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(resp)
}

// handleGet handles GET /v1/memories/:id.
func (s *Server) handleGet(c *fiber.Ctx) error {
	result, err := s.memories.Get(c.Context(), ownerOf(c), c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(result)
}

// handleDelete handles DELETE /v1/memories/:id.
func (s *Server) handleDelete(c *fiber.Ctx) error {
	if err := s.memories.Delete(c.Context(), ownerOf(c), c.Params("id")); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// queryList returns the raw comma-separated value as a single element; the
// engine splits and normalizes it.
func queryList(c *fiber.Ctx, key string) []string {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	return []string{raw}
}

func queryLimit(c *fiber.Ctx) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errLimit
	}
	return n, nil
}
