package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/propsync/internal/backend"
	"github.com/roach88/propsync/internal/graph"
	"github.com/roach88/propsync/internal/mirror"
	"github.com/roach88/propsync/internal/property"
	"github.com/roach88/propsync/internal/resource"
	"github.com/roach88/propsync/internal/testutil"
)

// Harness executes scenario steps against one resource.
// Sequence numbers are assigned from a counter so traces are reproducible.
type Harness struct {
	graph    *testutil.FaultyGraph
	props    *property.Store
	mirror   *mirror.File
	res      *resource.Resource
	key      string
	lockPath string
	seq      int64
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh temporary directory holding the mirror and
// the graph database, both removed afterwards.
//
// Execution flow:
//  1. Open the graph and build the resource
//  2. Execute setup steps (untraced, must succeed)
//  3. Execute flow steps, checking expect clauses
//  4. Capture the final state and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "propsync-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	defer os.RemoveAll(dir)

	ctx := context.Background()

	graphPath := filepath.Join(dir, "graph.db")
	if scenario.Backend == backend.Badger {
		graphPath = ""
	}
	g, err := backend.Open(scenario.Backend, graphPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph: %w", err)
	}
	defer g.Close()

	h, err := newHarness(ctx, g, dir, scenario.Resource)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	h.executeFlow(ctx, scenario.Flow, result)

	if err := h.captureState(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to capture final state: %w", err)
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

func newHarness(ctx context.Context, g graph.Graph, dir string, spec ResourceSpec) (*Harness, error) {
	node, err := g.ReferenceNode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve reference node: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	normalize, err := property.NormalizationByName(spec.Normalize)
	if err != nil {
		return nil, err
	}

	faulty := testutil.NewFaultyGraph(g)
	props := property.New(faulty, node, normalize, property.WithLogger(logger))

	path := filepath.Join(dir, spec.File)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory: %w", err)
	}
	m := mirror.New(path, mirror.DefaultMode)

	newResource := resource.New
	if spec.LockAware {
		newResource = resource.NewLockAware
	}

	return &Harness{
		graph:    faulty,
		props:    props,
		mirror:   m,
		res:      newResource(props, spec.Property, m, resource.WithLogger(logger)),
		key:      spec.Property,
		lockPath: resource.LockPath(path),
		logger:   logger,
	}, nil
}

func (h *Harness) nextSeq() int64 {
	h.seq++
	return h.seq
}

// executeSetup runs setup steps. Any failure aborts the scenario.
func (h *Harness) executeSetup(ctx context.Context, setup []Step) error {
	for i, step := range setup {
		if _, err := h.execute(ctx, step); err != nil {
			return fmt.Errorf("setup step %d (%s): %w", i, step.Op, err)
		}
	}
	return nil
}

// executeFlow runs flow steps, tracing each invocation and completion.
// A failing step without an expect clause is recorded as an error and the
// flow continues.
func (h *Harness) executeFlow(ctx context.Context, flow []Step, result *Result) {
	for i, step := range flow {
		result.AddInvocationTrace(step.Op, stepArgs(step), h.nextSeq())

		out, err := h.execute(ctx, step)
		outcome := OutcomeOK
		if err != nil {
			outcome = OutcomeError
			out = nil
		}
		result.AddCompletionTrace(outcome, out, h.nextSeq())

		if step.Expect == nil {
			if err != nil {
				result.AddError(fmt.Sprintf("flow[%d] %s: unexpected error: %v", i, step.Op, err))
			}
			continue
		}

		if step.Expect.Outcome != outcome {
			msg := fmt.Sprintf("flow[%d] %s: expected outcome %q, got %q", i, step.Op, step.Expect.Outcome, outcome)
			if err != nil {
				msg += fmt.Sprintf(" (%v)", err)
			}
			result.AddError(msg)
			continue
		}
		if !matchArgs(out, step.Expect.Result) {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected result %v, got %v", i, step.Op, step.Expect.Result, out))
		}
	}
}

// execute performs one step and returns its result fields.
func (h *Harness) execute(ctx context.Context, step Step) (map[string]any, error) {
	switch step.Op {
	case OpStore:
		changed, err := h.res.Store(ctx, *step.Data)
		if err != nil {
			return nil, err
		}
		return map[string]any{"changed": changed}, nil

	case OpRetrieve:
		value, ok := h.res.Retrieve(ctx)
		if !ok {
			return map[string]any{"present": false}, nil
		}
		return map[string]any{"present": true, "value": value}, nil

	case OpExists:
		exists, err := h.res.ExistsInStore(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"exists": exists}, nil

	case OpDelete:
		return nil, h.res.Delete(ctx)

	case OpRefresh:
		changed, err := h.res.Refresh(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"changed": changed}, nil

	case OpWriteFile:
		return nil, h.mirror.WriteAll(*step.Data)

	case OpRemoveFile:
		return nil, h.mirror.Delete()

	case OpWriteLock:
		return nil, os.WriteFile(h.lockPath, nil, 0o644)

	case OpFailCommits:
		h.graph.FailCommits(nil)
		return nil, nil

	case OpHeal:
		h.graph.Heal()
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

// captureState records the property, mirror and lock file after the flow.
func (h *Harness) captureState(ctx context.Context, result *Result) error {
	value, ok, err := h.props.Lookup(ctx, h.key)
	switch {
	case err != nil && !errors.Is(err, property.ErrTypeMismatch):
		return err
	case ok:
		result.State[StateProperty] = value
	default:
		result.State[StateProperty] = nil
	}

	if h.mirror.Exists() {
		content, err := h.mirror.ReadAll()
		if err != nil {
			return err
		}
		result.State[StateFile] = content
	} else {
		result.State[StateFile] = nil
	}

	_, err = os.Lstat(h.lockPath)
	result.State[StateLock] = err == nil
	return nil
}

func stepArgs(step Step) map[string]any {
	if step.Data == nil {
		return nil
	}
	return map[string]any{"data": *step.Data}
}
