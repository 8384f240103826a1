package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/oarkflow/log"
	"github.com/oarkflow/xid"

	basic "github.com/akadjoker/basic-interpreter"
)

const requestIDHeader = "X-Request-ID"

type Config struct {
	Version string
	// CacheSize is the number of parsed programs kept in memory. Zero
	// disables the cache.
	CacheSize int
	Globals   map[string]basic.Number
	Logger    *log.Logger
	// PrintEnv adds the final global bindings to every eval response.
	PrintEnv bool
	// Timeout bounds each evaluation. Zero leaves the runtime default.
	Timeout time.Duration
}

// Server exposes the interpreter over HTTP. Every request runs in its own
// Session, so requests never share variables.
type Server struct {
	app    *fiber.App
	cache  *ristretto.Cache
	config Config
	logger *log.Logger
}

type EvalRequest struct {
	Source string `json:"source"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

type Binding struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type EvalResponse struct {
	RequestID     string         `json:"requestId"`
	Results       []string       `json:"results"`
	Environment   []Binding      `json:"environment,omitempty"`
	Error         *ErrorResponse `json:"error,omitempty"`
	Cached        bool           `json:"cached"`
	ExecutionTime float64        `json:"executionTime"`
}

type TokenResponse struct {
	Type    string `json:"type"`
	Literal string `json:"literal,omitempty"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
}

type ParseResponse struct {
	Valid      bool           `json:"valid"`
	Statements []string       `json:"statements,omitempty"`
	Error      *ErrorResponse `json:"error,omitempty"`
}

func NewServer(cfg Config) (*Server, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})
	logger := cfg.Logger
	if logger == nil {
		logger = &log.DefaultLogger
	}
	s := &Server{app: app, config: cfg, logger: logger}
	if cfg.CacheSize > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters:        int64(cfg.CacheSize * 10),
			MaxCost:            int64(cfg.CacheSize),
			BufferItems:        64,
			// Every program costs 1, so MaxCost is a program count.
			IgnoreInternalCost: true,
		})
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.app.Use(cors.New())
	s.app.Use(s.requestLogger)

	s.app.Get("/api/health", s.healthHandler)
	s.app.Post("/api/eval", s.evalHandler)
	s.app.Post("/api/tokens", s.tokensHandler)
	s.app.Post("/api/parse", s.parseHandler)
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) requestLogger(c *fiber.Ctx) error {
	id := c.Get(requestIDHeader)
	if id == "" {
		id = xid.New().String()
	}
	c.Locals("requestID", id)
	c.Set(requestIDHeader, id)
	start := time.Now()
	err := c.Next()
	s.logger.Info().
		Str("request_id", id).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("latency", time.Since(start)).
		Msg("request handled")
	return err
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestID").(string)
	return id
}

func (s *Server) healthHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"version":   s.config.Version,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) evalHandler(c *fiber.Ctx) error {
	var req EvalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.Source) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Source cannot be empty"})
	}

	resp := EvalResponse{RequestID: requestID(c), Results: []string{}}
	start := time.Now()
	ctx := c.UserContext()
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}
	program, cached, err := s.program(ctx, req.Source)
	if err != nil {
		resp.Error = errorResponse(err)
		resp.ExecutionTime = time.Since(start).Seconds()
		return c.Status(statusFor(err)).JSON(resp)
	}
	resp.Cached = cached

	session := basic.NewSession(basic.WithLogger(s.logger), basic.WithGlobals(s.config.Globals))
	results, err := session.Exec(ctx, program)
	resp.ExecutionTime = time.Since(start).Seconds()
	if err != nil {
		resp.Error = errorResponse(err)
		return c.Status(statusFor(err)).JSON(resp)
	}
	for _, v := range results {
		resp.Results = append(resp.Results, basic.FormatValue(v))
	}
	if s.config.PrintEnv {
		env := session.Environment()
		for _, name := range env.Names() {
			v, _ := env.Get(name)
			resp.Environment = append(resp.Environment, Binding{Name: name, Value: v.String()})
		}
	}
	return c.JSON(resp)
}

// program returns the parsed form of source, from the cache when possible.
// Only successfully parsed programs are cached.
func (s *Server) program(ctx context.Context, source string) (*basic.StatementList, bool, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(source); ok {
			if program, ok := v.(*basic.StatementList); ok {
				return program, true, nil
			}
		}
	}
	program, err := basic.Parse(ctx, source)
	if err != nil {
		return nil, false, err
	}
	if s.cache != nil {
		s.cache.Set(source, program, 1)
	}
	return program, false, nil
}

func (s *Server) tokensHandler(c *fiber.Ctx) error {
	var req EvalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	tokens, err := basic.Tokenize(req.Source)
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": errorResponse(err)})
	}
	out := make([]TokenResponse, len(tokens))
	for i, tok := range tokens {
		out[i] = TokenResponse{Type: string(tok.Type), Literal: tok.Literal, Line: tok.Line, Column: tok.Column}
	}
	return c.JSON(fiber.Map{"tokens": out})
}

func (s *Server) parseHandler(c *fiber.Ctx) error {
	var req EvalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	program, _, err := s.program(c.UserContext(), req.Source)
	if err != nil {
		return c.JSON(ParseResponse{Valid: false, Error: errorResponse(err)})
	}
	resp := ParseResponse{Valid: true}
	for _, stmt := range program.Statements {
		resp.Statements = append(resp.Statements, stmt.String())
	}
	return c.JSON(resp)
}

func errorResponse(err error) *ErrorResponse {
	var be *basic.Error
	if errors.As(err, &be) {
		return &ErrorResponse{Code: string(be.Code), Message: be.Message, Line: be.Line, Column: be.Column}
	}
	return &ErrorResponse{Code: "INTERNAL", Message: err.Error()}
}

func statusFor(err error) int {
	switch basic.CodeOf(err) {
	case basic.ErrCodeLex, basic.ErrCodeSyntax, basic.ErrCodeExit:
		return fiber.StatusBadRequest
	case basic.ErrCodeRuntime, basic.ErrCodeLimit:
		return fiber.StatusUnprocessableEntity
	case basic.ErrCodeTimeout:
		return fiber.StatusRequestTimeout
	case basic.ErrCodeCanceled:
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("starting interpreter server")
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	s.logger.Info().Msg("shutting down interpreter server")
	if s.cache != nil {
		s.cache.Close()
	}
	return s.app.Shutdown()
}
