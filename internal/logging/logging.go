// Package logging writes gateway events to a logrus logger.
package logging

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/hanpama/graphstitch/internal/eventbus"
	"github.com/hanpama/graphstitch/internal/events"
	"github.com/hanpama/graphstitch/internal/reqid"
)

// New returns a logger writing to stderr at level in format ("text" or
// "json").
func New(level, format string) (*log.Logger, error) {
	logger := log.New()
	logger.SetOutput(os.Stderr)
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(lvl)
	switch format {
	case "", "text":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return logger, nil
}

// FromContext returns an entry tagged with the request id of ctx, if any.
func FromContext(ctx context.Context, logger log.FieldLogger) log.FieldLogger {
	if id, ok := reqid.FromContext(ctx); ok {
		return logger.WithField("request_id", id)
	}
	return logger
}

// Register logs request, operation and delegation events from the global
// bus to logger.
func Register(logger log.FieldLogger) (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			FromContext(ctx, logger).WithFields(log.Fields{
				"method":     e.Request.Method,
				"path":       e.Request.URL.Path,
				"status":     e.Status,
				"operations": e.Operations,
				"duration":   e.Duration,
			}).Info("request served")
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
			entry := FromContext(ctx, logger).WithFields(log.Fields{
				"operation":      e.OperationName,
				"operation_type": e.OperationType,
				"errors":         len(e.Errors),
				"duration":       e.Duration,
			})
			if len(e.Errors) > 0 {
				entry.WithError(e.Errors[0]).Warn("operation finished with errors")
				return
			}
			entry.Debug("operation finished")
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.DelegationStart) {
			FromContext(ctx, logger).WithFields(log.Fields{
				"delegation": e.ID,
				"subschema":  e.Subschema,
				"fields":     e.Fields,
			}).Debug("delegating")
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.DelegationFinish) {
			entry := FromContext(ctx, logger).WithFields(log.Fields{
				"delegation": e.ID,
				"subschema":  e.Subschema,
				"fields":     e.Fields,
				"errors":     e.Errors,
				"duration":   e.Duration,
			})
			if e.Err != nil {
				entry.WithError(e.Err).Error("subschema request failed")
				return
			}
			entry.Debug("subschema answered")
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
