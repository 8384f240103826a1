package basic

import (
	"context"
	"os"
	"time"

	"github.com/oarkflow/log"
)

type Option func(*Session)

func WithLogger(logger *log.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGlobals binds extra names after the built-in constants.
func WithGlobals(globals map[string]Number) Option {
	return func(s *Session) {
		for name, value := range globals {
			s.env.Set(name, value)
		}
	}
}

// Session is one program run: its global environment is created and seeded
// once, every statement is evaluated against it, and it is dropped with the
// Session. A REPL keeps one Session across inputs.
type Session struct {
	env    *Environment
	logger *log.Logger
}

func NewSession(opts ...Option) *Session {
	s := &Session{
		env:    NewGlobalEnvironment(),
		logger: &log.DefaultLogger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Environment() *Environment { return s.env }

// Run parses source as a whole and then evaluates each top-level statement in
// order. Nothing is evaluated when parsing fails, including on exit().
func (s *Session) Run(ctx context.Context, source string) (List, error) {
	program, err := Parse(ctx, source)
	if err != nil {
		s.logFailure(err, "parse failed")
		return nil, err
	}
	return s.Exec(ctx, program)
}

// Exec evaluates an already parsed program. Programs are not modified by
// evaluation, so one parsed program may be executed by many sessions.
func (s *Session) Exec(ctx context.Context, program *StatementList) (List, error) {
	cfg := effectiveRuntimeConfig(ctx)
	ctx, cancel := withRunTimeout(ctx, cfg)
	defer cancel()

	in := NewInterpreter(ctx, s.env)
	results := make(List, 0, len(program.Statements))
	for i, stmt := range program.Statements {
		start := time.Now()
		v, err := in.Evaluate(stmt)
		if err != nil {
			s.logFailure(err, "evaluation failed")
			return nil, err
		}
		if cfg.LogExecution {
			s.logger.Debug().Int("statement", i).Str("result", FormatValue(v)).Dur("duration", time.Since(start)).Msg("statement evaluated")
		}
		results = append(results, v)
	}
	return results, nil
}

// logFailure records a failed run at debug level. The error itself is the
// diagnostic and is reported by the caller.
func (s *Session) logFailure(err error, msg string) {
	if IsExit(err) {
		s.logger.Debug().Msg("exit() called")
		return
	}
	if be, ok := err.(*Error); ok {
		s.logger.Debug().Str("code", string(be.Code)).Int("line", be.Line).Int("column", be.Column).Msg(msg)
		return
	}
	s.logger.Debug().Err(err).Msg(msg)
}

// Run evaluates source in a fresh Session.
func Run(ctx context.Context, source string, opts ...Option) (List, error) {
	return NewSession(opts...).Run(ctx, source)
}

// RunFile evaluates the program stored at path in a fresh Session.
func RunFile(ctx context.Context, path string, opts ...Option) (List, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Run(ctx, string(content), opts...)
}
