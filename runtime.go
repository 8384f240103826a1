package basic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type RuntimeConfig struct {
	Timeout            time.Duration
	MaxExpressionDepth int
	MaxLoopIterations  int
	LogExecution       bool
}

var (
	runtimeConfigMu sync.RWMutex
	runtimeConfig   = RuntimeConfig{
		MaxExpressionDepth: 512,
		LogExecution:       true,
	}
)

type runtimeConfigContextKey struct{}

type RuntimeConfigOverride struct {
	Timeout            *time.Duration
	MaxExpressionDepth *int
	MaxLoopIterations  *int
	LogExecution       *bool
}

func SetRuntimeConfig(cfg RuntimeConfig) {
	runtimeConfigMu.Lock()
	defer runtimeConfigMu.Unlock()
	runtimeConfig = cfg
}

func GetRuntimeConfig() RuntimeConfig {
	runtimeConfigMu.RLock()
	defer runtimeConfigMu.RUnlock()
	return runtimeConfig
}

func WithRuntimeConfigOverride(ctx context.Context, override RuntimeConfigOverride) context.Context {
	return context.WithValue(ctx, runtimeConfigContextKey{}, override)
}

func effectiveRuntimeConfig(ctx context.Context) RuntimeConfig {
	cfg := GetRuntimeConfig()
	ov, ok := ctx.Value(runtimeConfigContextKey{}).(RuntimeConfigOverride)
	if !ok {
		return cfg
	}
	if ov.Timeout != nil {
		cfg.Timeout = *ov.Timeout
	}
	if ov.MaxExpressionDepth != nil {
		cfg.MaxExpressionDepth = *ov.MaxExpressionDepth
	}
	if ov.MaxLoopIterations != nil {
		cfg.MaxLoopIterations = *ov.MaxLoopIterations
	}
	if ov.LogExecution != nil {
		cfg.LogExecution = *ov.LogExecution
	}
	return cfg
}

func withRunTimeout(ctx context.Context, cfg RuntimeConfig) (context.Context, context.CancelFunc) {
	if cfg.Timeout <= 0 {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, cfg.Timeout)
}

func wrapContextErr(err error, pos Position) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: ErrCodeTimeout, Message: "run timed out", Line: pos.Line, Column: pos.Column, Cause: err}
	case errors.Is(err, context.Canceled):
		return &Error{Code: ErrCodeCanceled, Message: "run canceled", Line: pos.Line, Column: pos.Column, Cause: err}
	}
	return err
}

type ErrorCode string

const (
	ErrCodeLex      ErrorCode = "LEX_ERROR"
	ErrCodeSyntax   ErrorCode = "SYNTAX_ERROR"
	ErrCodeRuntime  ErrorCode = "RUNTIME_ERROR"
	ErrCodeExit     ErrorCode = "EXIT"
	ErrCodeLimit    ErrorCode = "LIMIT_EXCEEDED"
	ErrCodeTimeout  ErrorCode = "TIMEOUT"
	ErrCodeCanceled ErrorCode = "CANCELED"
)

// Error is returned by every stage of a run. All codes are fatal to the run
// that produced them.
type Error struct {
	Code    ErrorCode
	Message string
	Line    int
	Column  int
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Code == ErrCodeExit {
		return e.Message
	}
	msg := fmt.Sprintf("%s: %s at line %d, column %d", e.Code, e.Message, e.Line, e.Column)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *Error) Pos() Position {
	return Position{Line: e.Line, Column: e.Column}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there
// is none.
func CodeOf(err error) ErrorCode {
	var basicErr *Error
	if errors.As(err, &basicErr) {
		return basicErr.Code
	}
	return ""
}

// IsExit reports whether err was produced by exit().
func IsExit(err error) bool {
	return CodeOf(err) == ErrCodeExit
}

func lexErrorf(line, column int, format string, args ...any) error {
	return &Error{Code: ErrCodeLex, Message: fmt.Sprintf(format, args...), Line: line, Column: column}
}

func syntaxErrorf(tok Token, format string, args ...any) error {
	return &Error{Code: ErrCodeSyntax, Message: fmt.Sprintf(format, args...), Line: tok.Line, Column: tok.Column}
}

func runtimeErrorf(pos Position, format string, args ...any) error {
	return &Error{Code: ErrCodeRuntime, Message: fmt.Sprintf(format, args...), Line: pos.Line, Column: pos.Column}
}
