package delegate

import (
	"context"

	"github.com/hanpama/graphstitch/internal/executor"
	"github.com/hanpama/graphstitch/internal/schema"
	"github.com/hanpama/graphstitch/internal/subschema"
)

// Local returns an executor running sub-requests in process against s.
func Local(s *schema.Schema, rt executor.Runtime) subschema.Executor {
	exec := executor.NewExecutor(rt, s)
	return subschema.ExecutorFunc(func(ctx context.Context, req *subschema.Request) (*subschema.Response, error) {
		res := exec.ExecuteRequest(ctx, req.Document, req.OperationName, req.Variables, nil)
		data, _ := res.Data.(map[string]any)
		return &subschema.Response{Data: data, Errors: res.Errors}, nil
	})
}
