package logging

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphstitch/internal/eventbus"
	"github.com/hanpama/graphstitch/internal/events"
	"github.com/hanpama/graphstitch/internal/reqid"
)

func TestRegister(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	defer Register(logger)()

	ctx, id := reqid.NewContext(context.Background())
	eventbus.Publish(ctx, events.DelegationFinish{ID: "d1", Subschema: "users", Err: errors.New("down")})
	eventbus.Publish(ctx, events.GraphQLFinish{OperationName: "Q", Errors: []error{errors.New("boom")}})
	eventbus.Publish(ctx, events.HTTPFinish{Request: httptest.NewRequest("POST", "/graphql", nil), Status: 200, Operations: 2})

	entries := hook.AllEntries()
	require.Len(t, entries, 3)

	require.Equal(t, log.ErrorLevel, entries[0].Level)
	require.Equal(t, "subschema request failed", entries[0].Message)
	require.Equal(t, "users", entries[0].Data["subschema"])
	require.Equal(t, id, entries[0].Data["request_id"])
	require.EqualError(t, entries[0].Data[log.ErrorKey].(error), "down")

	require.Equal(t, log.WarnLevel, entries[1].Level)
	require.Equal(t, "Q", entries[1].Data["operation"])

	require.Equal(t, log.InfoLevel, entries[2].Level)
	require.Equal(t, 200, entries[2].Data["status"])
	require.Equal(t, 2, entries[2].Data["operations"])
}

func TestNew(t *testing.T) {
	logger, err := New("warn", "json")
	require.NoError(t, err)
	require.Equal(t, log.WarnLevel, logger.GetLevel())
	require.IsType(t, &log.JSONFormatter{}, logger.Formatter)

	_, err = New("loud", "text")
	require.Error(t, err)
	_, err = New("info", "xml")
	require.ErrorContains(t, err, "unknown log format")
}
