// Package obs provides structured logging and solve-instrumentation metrics
// shared by every component of the planning engine.
package obs

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a JSON-encoded zap.Logger at the given level.
func NewLogger(level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "json"
	return cfg.Build()
}

// Convenience typed fields used across the solve pipeline's stage logs.
func String(k, v string) zap.Field    { return zap.String(k, v) }
func Int(k string, v int) zap.Field   { return zap.Int(k, v) }
func Bool(k string, v bool) zap.Field { return zap.Bool(k, v) }
func Err(err error) zap.Field         { return zap.Error(err) }

// SolveID tags a log line with the solve_id correlating every stage of one
// rolling-controller.solveOne invocation (preprocess, index, constraints,
// objective, warm start, solve, extract).
func SolveID(id string) zap.Field { return zap.String("solve_id", id) }

// Stage tags a log line with which pipeline stage emitted it.
func Stage(name string) zap.Field { return zap.String("stage", name) }

// Product and Node tag a log line with the domain key a diagnostic concerns
// (a shortage, a shelf-life violation, a material-balance residual).
func Product(name string) zap.Field { return zap.String("product", name) }
func Node(id string) zap.Field      { return zap.String("node", id) }
