package server

import (
	"bytes"
	"errors"

	"github.com/VictoriaMetrics/metrics"
	"github.com/gofiber/fiber/v2"

	"github.com/mr-karan/sparkq/internal/registry"
	"github.com/mr-karan/sparkq/internal/sqlcheck"
	"github.com/mr-karan/sparkq/internal/sqlgen"
	"github.com/mr-karan/sparkq/internal/timerange"
)

// GenerateRequest is a query configuration plus an optional lint switch.
type GenerateRequest struct {
	sqlgen.QueryConfig
	Lint *bool `json:"lint,omitempty"`
}

// GenerateResponse carries the generated SQL.
type GenerateResponse struct {
	SQL      string   `json:"sql"`
	Warnings []string `json:"warnings"`
}

// ValidateRequest is a time range to check.
type ValidateRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ConditionInfo describes one canned condition.
type ConditionInfo struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	SQL   string `json:"sql"`
}

// handleHealth reports liveness.
// GET /api/v1/health
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return SendSuccess(c, fiber.StatusOK, fiber.Map{
		"status":  "ok",
		"version": s.version,
	})
}

// handleMetrics writes Prometheus text exposition.
// GET /api/v1/metrics
func (s *Server) handleMetrics(c *fiber.Ctx) error {
	var buf bytes.Buffer
	metrics.WritePrometheus(&buf, true)
	c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
	return c.Send(buf.Bytes())
}

// GET /api/v1/tables
func (s *Server) handleListTables(c *fiber.Ctx) error {
	return SendSuccess(c, fiber.StatusOK, s.gen.Registry().Tables())
}

// handleListFields returns the field picker entries of a table, filtered by
// the q prefix.
// GET /api/v1/tables/:table/fields?q=
func (s *Server) handleListFields(c *fiber.Ctx) error {
	t, err := s.gen.Registry().Table(c.Params("table"))
	if err != nil {
		return SendErrorWithType(c, fiber.StatusNotFound, err.Error(), NotFoundErrorType)
	}
	items := t.Fields(c.Query("q"))
	if items == nil {
		items = []registry.FieldItem{}
	}
	return SendSuccess(c, fiber.StatusOK, items)
}

// GET /api/v1/tables/:table/conditions
func (s *Server) handleListConditions(c *fiber.Ctx) error {
	t, err := s.gen.Registry().Table(c.Params("table"))
	if err != nil {
		return SendErrorWithType(c, fiber.StatusNotFound, err.Error(), NotFoundErrorType)
	}
	out := make([]ConditionInfo, 0, len(t.Conditions))
	for _, key := range t.ConditionKeys() {
		cond, _ := t.Condition(key)
		out = append(out, ConditionInfo{Key: key, Label: cond.Label, SQL: cond.SQL.Qualified("")})
	}
	return SendSuccess(c, fiber.StatusOK, out)
}

// GET /api/v1/join-keys?t1=&t2=
func (s *Server) handleJoinKeys(c *fiber.Ctx) error {
	t1, t2 := c.Query("t1"), c.Query("t2")
	if t1 == "" || t2 == "" {
		return SendErrorWithType(c, fiber.StatusBadRequest, "t1 and t2 are required", ValidationErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, s.gen.Registry().JoinKeySuggestions(t1, t2))
}

// GET /api/v1/quick-queries
func (s *Server) handleListQuickQueries(c *fiber.Ctx) error {
	return SendSuccess(c, fiber.StatusOK, s.gen.Registry().QuickQueries())
}

// POST /api/v1/validate
func (s *Server) handleValidate(c *fiber.Ctx) error {
	var req ValidateRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", ValidationErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, timerange.Validate(req.Start, req.End))
}

// handleGenerate renders a single-table or join query. An empty time range
// is allowed and yields unbounded table references.
// POST /api/v1/generate
func (s *Server) handleGenerate(c *fiber.Ctx) error {
	var req GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", ValidationErrorType)
	}
	cfg := req.QueryConfig

	if _, err := timerange.ParseOffset(cfg.Offset); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), ValidationErrorType)
	}
	if cfg.Start != "" || cfg.End != "" {
		if res := timerange.Validate(cfg.Start, cfg.End); !res.Valid {
			return SendErrorWithType(c, fiber.StatusBadRequest, res.Error, ValidationErrorType)
		}
	}

	mode := "single"
	if cfg.Join != nil {
		mode = "join"
		if err := s.gen.ValidateJoin(*cfg.Join); err != nil {
			return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), ValidationErrorType)
		}
	} else if !s.gen.Registry().Has(cfg.Table) {
		return SendErrorWithType(c, fiber.StatusBadRequest, "unknown table: "+cfg.Table, ValidationErrorType)
	}

	sql := s.gen.Generate(cfg)
	metrics.GetOrCreateCounter(`sparkq_queries_generated_total{mode="` + mode + `"}`).Inc()

	lint := s.opts.Lint
	if req.Lint != nil {
		lint = *req.Lint
	}
	warnings := []string{}
	if lint {
		warnings = sqlcheck.Lint(sql)
	}

	s.log.Debug("generated query", "mode", mode, "table", cfg.Table, "request_id", c.Locals("request_id"))
	return SendSuccess(c, fiber.StatusOK, GenerateResponse{SQL: sql, Warnings: warnings})
}

// handleQuickQuery renders a predefined UNION ALL query.
// POST /api/v1/quick/:key
func (s *Server) handleQuickQuery(c *fiber.Ctx) error {
	key := c.Params("key")
	var tr sqlgen.TimeRange
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&tr); err != nil {
			return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", ValidationErrorType)
		}
	}

	q, err := s.gen.Registry().QuickQuery(key)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownQuickQuery) {
			return SendErrorWithType(c, fiber.StatusNotFound, err.Error(), NotFoundErrorType)
		}
		return err
	}
	if _, err := timerange.ParseOffset(tr.Offset); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), ValidationErrorType)
	}
	if q.RequiresTimeRange {
		if res := timerange.Validate(tr.Start, tr.End); !res.Valid {
			return SendErrorWithType(c, fiber.StatusBadRequest, res.Error, ValidationErrorType)
		}
	}

	metrics.GetOrCreateCounter(`sparkq_queries_generated_total{mode="quick"}`).Inc()
	return SendSuccess(c, fiber.StatusOK, GenerateResponse{SQL: s.gen.QuickQuery(key, tr), Warnings: []string{}})
}
