package plugins

import (
	"context"
	"time"

	"go.uber.org/zap"

	envelop "github.com/hanpama/envelope/internal/envelop"
	reqid "github.com/hanpama/envelope/internal/reqid"
)

type logger struct {
	log *zap.Logger
}

// UseLogger logs every operation before and after execution.
func UseLogger(log *zap.Logger) envelop.Plugin {
	return &logger{log: log.Named("graphql")}
}

func (p *logger) PluginName() string { return "logger" }

func (p *logger) OnExecute(ctx context.Context, api *envelop.ExecuteAPI) (envelop.AfterExecuteHook, error) {
	log := p.log.With(zap.String("operation", api.Args.OperationName))
	if rid, ok := reqid.FromContext(ctx); ok {
		log = log.With(zap.String("request_id", rid))
	}
	log.Debug("execute start", zap.Int("context_keys", len(api.Args.ContextValue)))

	start := time.Now()
	return func(ctx context.Context, done *envelop.AfterExecuteAPI) error {
		fields := []zap.Field{zap.Duration("duration", time.Since(start))}
		if done.Result != nil && len(done.Result.Errors) > 0 {
			msgs := make([]string, len(done.Result.Errors))
			for i, e := range done.Result.Errors {
				msgs[i] = e.Message
			}
			log.Info("execute end with errors", append(fields, zap.Strings("errors", msgs))...)
			return nil
		}
		log.Info("execute end", fields...)
		return nil
	}, nil
}
