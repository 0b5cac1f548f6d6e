package workflow

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	gaoconfig "github.com/JaimeStill/go-agents-orchestration/pkg/config"
	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/foreman/internal/compliance"
	"github.com/JaimeStill/foreman/internal/documents"
	"github.com/JaimeStill/foreman/internal/validation"
)

// Execute runs the estimate workflow for a single request. It builds the
// state graph (generate → persist → validate → deliver? → finalize),
// executes it, and extracts the Result from the final state. A step that
// fails or is blocked ends the run; its error is returned alongside the
// partial result.
func Execute(ctx context.Context, rt *Runtime, req Request) (*Result, error) {
	if req.Level != "" {
		level, err := validation.ParseLevel(string(req.Level))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		req.Level = level
	}

	graph, err := buildGraph(rt)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	initialState := state.New(nil)
	initialState = initialState.Set(KeyRequest, req)

	finalState, err := graph.Execute(ctx, initialState)
	if err != nil {
		return nil, fmt.Errorf("execute graph: %w", err)
	}

	result := extractResult(finalState)
	return result, result.err
}

// ExecuteBatch runs Execute for every request with bounded concurrency.
// Results are returned in request order; a failed request does not stop the
// others and carries its error in Result.Error. Only cancellation of ctx
// fails the batch.
func ExecuteBatch(ctx context.Context, rt *Runtime, reqs []Request) ([]*Result, error) {
	results := make([]*Result, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(rt.Workers, len(reqs)))

	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			result, err := Execute(gctx, rt, req)
			if result == nil {
				result = &Result{Compliance: []*compliance.Report{}, CompletedAt: time.Now().UTC()}
			}
			if err != nil {
				result.err = err
				result.Error = err.Error()
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	rt.Logger.InfoContext(ctx, "batch complete", "requests", len(reqs))
	return results, nil
}

func buildGraph(rt *Runtime) (state.StateGraph, error) {
	cfg := gaoconfig.DefaultGraphConfig("foreman-estimate")
	cfg.Observer = "noop"

	graph, err := state.NewGraph(cfg)
	if err != nil {
		return nil, err
	}

	nodes := []struct {
		name string
		node state.StateNode
	}{
		{"generate", GenerateNode(rt)},
		{"persist", PersistNode(rt)},
		{"validate", ValidateNode(rt)},
		{"deliver", DeliverNode(rt)},
		{"finalize", FinalizeNode(rt)},
	}
	for _, n := range nodes {
		if err := graph.AddNode(n.name, n.node); err != nil {
			return nil, err
		}
	}

	// generate → persist → validate, each falling through to finalize on error
	for _, edge := range [][2]string{{"generate", "persist"}, {"persist", "validate"}} {
		if err := graph.AddEdge(edge[0], edge[1], proceed); err != nil {
			return nil, err
		}
		if err := graph.AddEdge(edge[0], "finalize", state.Not(proceed)); err != nil {
			return nil, err
		}
	}

	// validate → deliver (when requested and validation completed)
	if err := graph.AddEdge("validate", "deliver", deliverable); err != nil {
		return nil, err
	}

	// validate → finalize (otherwise)
	if err := graph.AddEdge("validate", "finalize", state.Not(deliverable)); err != nil {
		return nil, err
	}

	// deliver → finalize (unconditional)
	if err := graph.AddEdge("deliver", "finalize", nil); err != nil {
		return nil, err
	}

	if err := graph.SetEntryPoint("generate"); err != nil {
		return nil, err
	}

	if err := graph.SetExitPoint("finalize"); err != nil {
		return nil, err
	}

	return graph, nil
}

func extractResult(s state.State) *Result {
	result := &Result{
		Compliance:  []*compliance.Report{},
		CompletedAt: time.Now().UTC(),
	}

	if reports, ok := get[[]*compliance.Report](s, KeyReports); ok {
		result.Compliance = reports
	}
	if rec, ok := get[*documents.Record](s, KeyRecord); ok {
		result.Document = rec
	}
	if v, ok := get[*validation.Result](s, KeyValidation); ok {
		result.Validation = v
	}
	result.Delivered, _ = get[bool](s, KeyDelivered)

	if err, ok := get[error](s, KeyErr); ok && err != nil {
		result.err = err
		result.Error = err.Error()
	}
	return result
}

func proceed(s state.State) bool {
	_, failed := s.Get(KeyErr)
	return !failed
}

func deliverable(s state.State) bool {
	req, ok := get[Request](s, KeyRequest)
	return ok && req.Deliver && proceed(s)
}

func workerCount(configured, requests int) int {
	if configured <= 0 {
		configured = runtime.NumCPU()
	}
	return max(min(configured, requests), 1)
}
