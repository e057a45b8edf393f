package config

import (
	"context"

	"github.com/morozRed/tangle/internal/tangle"
	"go.uber.org/zap"
)

type envKey struct{}

// Env keeps what one command invocation needs in a single place.
type Env struct {
	Cfg *Config
	Log *zap.Logger
	// CloseLog releases the log destination, if any.
	CloseLog func() error
}

// EnvFromContext returns the invocation environment, or defaults with a
// no-op logger when none was attached.
func EnvFromContext(ctx context.Context) *Env {
	if ctx != nil {
		if env, ok := ctx.Value(envKey{}).(*Env); ok {
			return env
		}
	}
	return &Env{Cfg: Default(), Log: zap.NewNop()}
}

func ContextWithEnv(ctx context.Context, env *Env) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, envKey{}, env)
}

// Close flushes the logger and releases its destination. Sync errors from
// stderr on a terminal or pipe are expected and ignored.
func (e *Env) Close() error {
	_ = e.Log.Sync()
	if e.CloseLog == nil {
		return nil
	}
	return e.CloseLog()
}

// Settings returns pipeline settings carrying the environment's logger.
func (e *Env) Settings() tangle.Settings {
	s := e.Cfg.Settings()
	s.Logger = e.Log
	return s
}
