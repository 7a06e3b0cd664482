package database

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/utafrali/storefront/pkg/database"

// maxStatementLen bounds the statement recorded on spans and slow-op logs.
const maxStatementLen = 512

var slowOpCfg struct {
	mu        sync.RWMutex
	threshold time.Duration
	logger    *slog.Logger
}

// SetSlowOperationLogging configures slow operation detection. Operations
// exceeding threshold are logged as warnings. A zero threshold disables it.
func SetSlowOperationLogging(threshold time.Duration, logger *slog.Logger) {
	slowOpCfg.mu.Lock()
	defer slowOpCfg.mu.Unlock()
	slowOpCfg.threshold = threshold
	slowOpCfg.logger = logger
}

func slowOperationConfig() (time.Duration, *slog.Logger) {
	slowOpCfg.mu.RLock()
	defer slowOpCfg.mu.RUnlock()
	return slowOpCfg.threshold, slowOpCfg.logger
}

// TraceOperation starts a client span for a store operation. Call the
// returned function with the operation's error when it completes:
//
//	ctx, end := database.TraceOperation(ctx, "elasticsearch", "count", query)
//	defer func() { end(err) }()
func TraceOperation(ctx context.Context, system, operation, statement string) (context.Context, func(error)) {
	start := time.Now()
	statement = truncate(statement)

	ctx, span := otel.Tracer(tracerName).Start(ctx, system+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", system),
			attribute.String("db.operation", operation),
			attribute.String("db.statement", statement),
		),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		threshold, logger := slowOperationConfig()
		if threshold <= 0 || logger == nil {
			return
		}
		if elapsed := time.Since(start); elapsed >= threshold {
			attrs := []any{
				slog.String("system", system),
				slog.String("operation", operation),
				slog.String("statement", statement),
				slog.Duration("duration", elapsed),
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}
			logger.WarnContext(ctx, "slow store operation", attrs...)
		}
	}
}

func truncate(s string) string {
	if len(s) <= maxStatementLen {
		return s
	}
	return s[:maxStatementLen] + "..."
}

// redisTracingHook traces every command and pipeline sent by a go-redis client.
type redisTracingHook struct{}

var _ redis.Hook = redisTracingHook{}

func (redisTracingHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (redisTracingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		ctx, end := TraceOperation(ctx, "redis", cmd.Name(), cmd.String())
		err := next(ctx, cmd)
		end(redisError(err))
		return err
	}
}

func (redisTracingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		names := make([]string, 0, len(cmds))
		for _, cmd := range cmds {
			names = append(names, cmd.Name())
		}
		ctx, end := TraceOperation(ctx, "redis", "pipeline", strings.Join(names, " "))
		err := next(ctx, cmds)
		end(redisError(err))
		return err
	}
}

// redisError hides redis.Nil, which signals a missing key rather than a failure.
func redisError(err error) error {
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
