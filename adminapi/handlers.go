// Package adminapi exposes queue statistics, enqueueing and cleaning over HTTP.
package adminapi

import (
	"encoding/json"

	"github.com/code19m/errx"
	"github.com/gofiber/fiber/v2"
	"github.com/rise-and-shine/docqueue/docqueue"
	"github.com/rise-and-shine/docqueue/val"
	"github.com/samber/lo"
	"github.com/spf13/cast"
)

const codeInvalidBody = "INVALID_BODY"

type handler struct {
	registry *Registry
}

// Routes returns a function registering the admin routes on a router:
//
//	GET  /queues
//	GET  /queues/:name/stats
//	POST /queues/:name/messages
//	POST /queues/:name/clean
func Routes(registry *Registry) func(r fiber.Router) {
	h := &handler{registry: registry}

	return func(r fiber.Router) {
		g := r.Group("/queues")
		g.Get("/", h.listQueues)
		g.Get("/:name/stats", h.stats)
		g.Post("/:name/messages", h.enqueue)
		g.Post("/:name/clean", h.clean)
	}
}

type listQueuesResponse struct {
	Queues []string `json:"queues"`
}

func (h *handler) listQueues(c *fiber.Ctx) error {
	return c.JSON(listQueuesResponse{Queues: h.registry.Names()})
}

func (h *handler) stats(c *fiber.Ctx) error {
	q, err := h.registry.Lookup(c.Params("name"))
	if err != nil {
		return errx.Wrap(err)
	}

	stats, err := q.Stats(c.UserContext())
	if err != nil {
		return errx.Wrap(err)
	}

	return c.JSON(stats)
}

type enqueueRequest struct {
	Payloads []json.RawMessage `json:"payloads" validate:"required,min=1,max=1000"`
	Delay    string            `json:"delay"    validate:"duration"`
}

type enqueueResponse struct {
	IDs []string `json:"ids"`
}

func (h *handler) enqueue(c *fiber.Ctx) error {
	q, err := h.registry.Lookup(c.Params("name"))
	if err != nil {
		return errx.Wrap(err)
	}

	var req enqueueRequest
	err = c.BodyParser(&req)
	if err != nil {
		return errx.Wrap(err,
			errx.WithCode(codeInvalidBody),
			errx.WithType(errx.T_Validation),
		)
	}

	err = val.ValidateSchema(req)
	if err != nil {
		return errx.Wrap(err)
	}

	var opts []docqueue.AddOption
	if req.Delay != "" {
		opts = append(opts, docqueue.WithDelay(cast.ToDuration(req.Delay)))
	}

	payloads := lo.Map(req.Payloads, func(p json.RawMessage, _ int) any { return p })

	ids, err := q.AddBatch(c.UserContext(), payloads, opts...)
	if err != nil {
		return errx.Wrap(err)
	}

	return c.Status(fiber.StatusCreated).JSON(enqueueResponse{IDs: ids})
}

type cleanResponse struct {
	Deleted int64 `json:"deleted"`
}

func (h *handler) clean(c *fiber.Ctx) error {
	q, err := h.registry.Lookup(c.Params("name"))
	if err != nil {
		return errx.Wrap(err)
	}

	n, err := q.Clean(c.UserContext())
	if err != nil {
		return errx.Wrap(err)
	}

	return c.JSON(cleanResponse{Deleted: n})
}

