package taralli_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonKowalski/taralli/pkg/taralli"
	"github.com/BrandonKowalski/taralli/pkg/taralli/constants"
)

// containerRoot builds five containers of three leaf children each. The
// first child of every container is flagged not actionable.
func containerRoot() []any {
	root := make([]any, 0, 5)
	for i := 0; i < 5; i++ {
		kids := make([]any, 0, 3)
		for j := 0; j < 3; j++ {
			kid := map[string]any{
				"id":   fmt.Sprintf("c%d-%d", i, j),
				"name": fmt.Sprintf("Child %d.%d", i, j),
			}
			if j == 0 {
				kid["notActionable"] = true
			}
			kids = append(kids, kid)
		}
		root = append(root, map[string]any{
			"id":    fmt.Sprintf("c%d", i),
			"name":  fmt.Sprintf("Container %d", i),
			"items": kids,
		})
	}
	return root
}

// nestedRecords builds a uniform tree of containers down to the given
// depth; leaves carry no children key.
func nestedRecords(prefix string, depth, fanout int) []any {
	out := make([]any, fanout)
	for i := 0; i < fanout; i++ {
		id := fmt.Sprintf("%s%d", prefix, i)
		rec := map[string]any{"id": id, "name": id}
		if depth > 1 {
			rec["items"] = nestedRecords(id+".", depth-1, fanout)
		}
		out[i] = rec
	}
	return out
}

func inlineLevels() []taralli.LevelDescriptor {
	return []taralli.LevelDescriptor{{ChildrenKey: "items"}}
}

type memStorage struct {
	m map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{m: make(map[string][]byte)}
}

func (s *memStorage) Load(key string) ([]byte, error)    { return s.m[key], nil }
func (s *memStorage) Save(key string, data []byte) error { s.m[key] = data; return nil }

func startEngine(t *testing.T, cfg taralli.Config) *taralli.Engine {
	t.Helper()
	e, err := taralli.New(cfg)
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))
	return e
}

// tickUntil drives the engine at 16ms steps until the condition holds.
func tickUntil(t *testing.T, e *taralli.Engine, now time.Time, cond func() bool) time.Time {
	t.Helper()
	deadline := now.Add(5 * time.Second)
	for !cond() && now.Before(deadline) {
		now = now.Add(16 * time.Millisecond)
		e.Tick(now)
	}
	require.True(t, cond(), "engine did not reach expected state")
	return now
}

// settleAt nudges the selection to the given index and ticks until the
// fractional index converges on it exactly.
func settleAt(t *testing.T, e *taralli.Engine, now time.Time, idx int) time.Time {
	t.Helper()
	for e.TargetIndex() < float64(idx) {
		e.HandleNav(taralli.NavEvent{Direction: constants.DirectionForward, Speed: 1})
	}
	for e.TargetIndex() > float64(idx) {
		e.HandleNav(taralli.NavEvent{Direction: constants.DirectionBack, Speed: 1})
	}
	return tickUntil(t, e, now, func() bool { return e.CurrentIndex() == float64(idx) })
}

func drill(t *testing.T, e *taralli.Engine, now time.Time) time.Time {
	t.Helper()
	require.True(t, e.HandleButton(taralli.ButtonEvent{Button: constants.VirtualButtonLeft}))
	return tickUntil(t, e, now, func() bool { return !e.Transitioning() })
}

func back(t *testing.T, e *taralli.Engine, now time.Time) time.Time {
	t.Helper()
	require.True(t, e.HandleButton(taralli.ButtonEvent{Button: constants.VirtualButtonRight}))
	return tickUntil(t, e, now, func() bool { return !e.Transitioning() })
}

func itemIDs(items []taralli.Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func TestDrillForwardAndBackRoundTrip(t *testing.T) {
	e := startEngine(t, taralli.Config{RootData: containerRoot(), Levels: inlineLevels()})
	now := time.Now()

	now = settleAt(t, e, now, 2)
	now = drill(t, e, now)

	assert.Equal(t, 1, e.Depth())
	assert.Equal(t, 0.0, e.CurrentIndex(), "new level starts at index zero")
	assert.Equal(t, []string{"c2-0", "c2-1", "c2-2"}, itemIDs(e.Items()))
	assert.Equal(t, []string{"c2"}, itemIDs(e.Path()))

	// The parked crumb renders at slot zero alongside the new level.
	var crumbs, items int
	for _, el := range e.Render() {
		switch el.Kind {
		case taralli.ElementCrumb:
			crumbs++
			assert.Equal(t, "crumb:c2", el.ID)
			assert.Equal(t, "Container 2", el.Label)
		case taralli.ElementItem:
			items++
		}
	}
	assert.Equal(t, 1, crumbs)
	assert.Equal(t, 3, items)

	now = back(t, e, now)

	assert.Equal(t, 0, e.Depth())
	assert.Equal(t, 2.0, e.CurrentIndex(), "parent selection restored exactly")
	assert.Equal(t, []string{"c0", "c1", "c2", "c3", "c4"}, itemIDs(e.Items()))
	assert.Empty(t, e.Path())
}

func TestDeepRoundTripRestoresEveryLevel(t *testing.T) {
	e := startEngine(t, taralli.Config{
		RootData: nestedRecords("", 4, 3),
		Levels:   inlineLevels(),
	})
	now := time.Now()

	for depth := 0; depth < 3; depth++ {
		now = settleAt(t, e, now, 1)
		now = drill(t, e, now)
		require.Equal(t, depth+1, e.Depth())
		require.Equal(t, 0.0, e.CurrentIndex())
	}
	assert.Equal(t, []string{"1", "1.1", "1.1.1"}, itemIDs(e.Path()))

	for depth := 3; depth > 0; depth-- {
		now = back(t, e, now)
		require.Equal(t, depth-1, e.Depth())
		require.Equal(t, 1.0, e.CurrentIndex(), "depth %d", depth-1)
	}
	assert.Equal(t, []string{"0", "1", "2"}, itemIDs(e.Items()))
}

func TestBackDuringDrillPreemptsAndConverges(t *testing.T) {
	e := startEngine(t, taralli.Config{RootData: containerRoot(), Levels: inlineLevels()})
	now := time.Now()

	require.True(t, e.HandleButton(taralli.ButtonEvent{Button: constants.VirtualButtonLeft}))
	for i := 0; i < 3; i++ {
		now = now.Add(16 * time.Millisecond)
		e.Tick(now)
	}
	require.True(t, e.Transitioning())

	// Back mid-drill: the drill fast-forwards to its settled end state,
	// then the back sequence runs to completion.
	now = back(t, e, now)

	assert.Equal(t, 0, e.Depth())
	assert.Equal(t, 0.0, e.CurrentIndex())
	assert.Equal(t, []string{"c0", "c1", "c2", "c3", "c4"}, itemIDs(e.Items()))

	elements := e.Render()
	require.Len(t, elements, 6, "depth indicator plus five items, no residue")
	for _, el := range elements[1:] {
		assert.Equal(t, taralli.ElementItem, el.Kind)
		assert.Greater(t, el.Opacity, 0.0)
	}
}

func TestDrillDuringDrillSeesSettledState(t *testing.T) {
	e := startEngine(t, taralli.Config{RootData: containerRoot(), Levels: inlineLevels()})
	now := time.Now()

	require.True(t, e.HandleButton(taralli.ButtonEvent{Button: constants.VirtualButtonLeft}))
	now = now.Add(16 * time.Millisecond)
	e.Tick(now)
	require.True(t, e.Transitioning())

	// Second drill press lands on the fast-forwarded child level, where
	// the selection is a plain leaf, so it falls through to the host.
	assert.False(t, e.HandleButton(taralli.ButtonEvent{Button: constants.VirtualButtonLeft}))
	assert.Equal(t, 1, e.Depth())
	assert.False(t, e.Transitioning())
}

func TestNavDeferredDuringTransition(t *testing.T) {
	e := startEngine(t, taralli.Config{RootData: containerRoot(), Levels: inlineLevels()})
	now := time.Now()

	require.True(t, e.HandleButton(taralli.ButtonEvent{Button: constants.VirtualButtonLeft}))
	e.HandleNav(taralli.NavEvent{Direction: constants.DirectionForward, Speed: 1})
	e.HandleNav(taralli.NavEvent{Direction: constants.DirectionForward, Speed: 1})
	assert.Equal(t, 0.0, e.TargetIndex(), "nav must not move the selection mid-transition")

	now = tickUntil(t, e, now, func() bool { return !e.Transitioning() })
	assert.Equal(t, 0.5, e.TargetIndex(), "deferred events apply to the new level")
	tickUntil(t, e, now, func() bool { return e.CurrentIndex() == 0.5 })
}

func TestEmptyContainerDrillIsConsumedNoOp(t *testing.T) {
	var errs []error
	e := startEngine(t, taralli.Config{
		RootData: []any{map[string]any{"id": "hollow", "name": "Hollow", "items": []any{}}},
		Levels: []taralli.LevelDescriptor{{
			ChildrenKey: "items",
			IsContainer: func(taralli.Item) bool { return true },
		}},
		OnError: func(err error) { errs = append(errs, err) },
	})
	now := time.Now()

	assert.True(t, e.HandleButton(taralli.ButtonEvent{Button: constants.VirtualButtonLeft}))
	tickUntil(t, e, now, func() bool { return !e.Transitioning() })

	assert.Equal(t, 0, e.Depth())
	assert.Equal(t, []string{"hollow"}, itemIDs(e.Items()))
	assert.Empty(t, errs, "an empty container is not a failure")
}

func TestLoaderFailureAbortsDrill(t *testing.T) {
	var errs []error
	e := startEngine(t, taralli.Config{
		RootData: []any{map[string]any{"id": "remote", "name": "Remote", "childrenRef": "remote"}},
		Levels: []taralli.LevelDescriptor{{
			Children: func(ctx context.Context, item taralli.Item, depth int) ([]any, error) {
				return nil, errors.New("backend down")
			},
		}},
		OnError: func(err error) { errs = append(errs, err) },
	})
	now := time.Now()

	require.True(t, e.HandleButton(taralli.ButtonEvent{Button: constants.VirtualButtonLeft}))
	tickUntil(t, e, now, func() bool { return !e.Transitioning() })

	assert.Equal(t, 0, e.Depth(), "no frame is pushed for a failed load")
	assert.Equal(t, []string{"remote"}, itemIDs(e.Items()))
	require.Len(t, errs, 1)
	assert.True(t, taralli.IsInfrastructureError(errs[0]))
}

func TestEmptyLoaderResultAbortsSilently(t *testing.T) {
	var errs []error
	e := startEngine(t, taralli.Config{
		RootData: []any{map[string]any{"id": "remote", "name": "Remote", "childrenRef": "remote"}},
		Levels: []taralli.LevelDescriptor{{
			Children: func(ctx context.Context, item taralli.Item, depth int) ([]any, error) {
				return []any{}, nil
			},
		}},
		OnError: func(err error) { errs = append(errs, err) },
	})
	now := time.Now()

	require.True(t, e.HandleButton(taralli.ButtonEvent{Button: constants.VirtualButtonLeft}))
	tickUntil(t, e, now, func() bool { return !e.Transitioning() })

	assert.Equal(t, 0, e.Depth())
	assert.Empty(t, errs)
}

func TestSelectCommitGating(t *testing.T) {
	type commit struct {
		item  taralli.Item
		depth int
		path  []string
		index int
	}
	var commits []commit
	acks := 0
	e := startEngine(t, taralli.Config{
		RootData: containerRoot(),
		Levels:   inlineLevels(),
		OnCommit: func(item taralli.Item, depth int, path []taralli.Item, index int) {
			commits = append(commits, commit{item, depth, itemIDs(path), index})
		},
		OnAck: func() { acks++ },
	})
	now := time.Now()

	// A container never commits.
	assert.False(t, e.HandleButton(taralli.ButtonEvent{Button: constants.VirtualButtonSelect}))
	assert.Empty(t, commits)

	now = settleAt(t, e, now, 2)
	now = drill(t, e, now)

	// Child zero is flagged not actionable: guaranteed no-op.
	assert.False(t, e.HandleButton(taralli.ButtonEvent{Button: constants.VirtualButtonSelect}))
	assert.Empty(t, commits)
	assert.Zero(t, acks)

	now = settleAt(t, e, now, 1)
	assert.True(t, e.HandleButton(taralli.ButtonEvent{Button: constants.VirtualButtonSelect}))

	require.Len(t, commits, 1, "exactly one commit per press")
	assert.Equal(t, 1, acks)
	assert.Equal(t, "c2-1", commits[0].item.ID)
	assert.Equal(t, 1, commits[0].depth)
	assert.Equal(t, []string{"c2"}, commits[0].path)
	assert.Equal(t, 1, commits[0].index)
}

func TestPageEnterAndExit(t *testing.T) {
	root := []any{
		map[string]any{
			"id":   "status",
			"name": "Status",
			"page": map[string]any{
				"title": "System Status",
				"body":  []any{"all good", "uptime 31d"},
			},
		},
		map[string]any{"id": "c0", "name": "Container 0", "items": []any{
			map[string]any{"id": "c0-0", "name": "Child"},
		}},
	}
	e := startEngine(t, taralli.Config{RootData: root, Levels: inlineLevels()})
	now := time.Now()

	now = drill(t, e, now)
	assert.True(t, e.InPageView())
	assert.Equal(t, 1, e.Depth())

	var page *taralli.RenderElement
	for _, el := range e.Render() {
		if el.Kind == taralli.ElementPage {
			el := el
			page = &el
		}
	}
	require.NotNil(t, page)
	require.NotNil(t, page.Page)
	assert.Equal(t, "System Status", page.Page.Title)
	assert.Equal(t, []string{"all good", "uptime 31d"}, page.Page.Body)

	// Inside a page, drill and select fall through to the host.
	assert.False(t, e.HandleButton(taralli.ButtonEvent{Button: constants.VirtualButtonLeft}))
	assert.False(t, e.HandleButton(taralli.ButtonEvent{Button: constants.VirtualButtonSelect}))

	now = back(t, e, now)
	assert.False(t, e.InPageView())
	assert.Equal(t, 0, e.Depth())
	assert.Equal(t, []string{"status", "c0"}, itemIDs(e.Items()))
	assert.Equal(t, 0.0, e.CurrentIndex())
}

func TestBackAtRootFallsThrough(t *testing.T) {
	e := startEngine(t, taralli.Config{RootData: containerRoot(), Levels: inlineLevels()})

	assert.False(t, e.HandleButton(taralli.ButtonEvent{Button: constants.VirtualButtonRight}))
	assert.Equal(t, 0, e.Depth())
	assert.False(t, e.Transitioning())
}

func TestViewChangedFiresOnCommitOnly(t *testing.T) {
	var paths [][]string
	e := startEngine(t, taralli.Config{
		RootData:      containerRoot(),
		Levels:        inlineLevels(),
		OnViewChanged: func(path []taralli.Item) { paths = append(paths, itemIDs(path)) },
	})
	now := time.Now()

	require.Len(t, paths, 1, "start announces the root view")
	assert.Empty(t, paths[0])

	now = settleAt(t, e, now, 1)
	require.Len(t, paths, 1, "scrolling alone never changes the view")

	now = drill(t, e, now)
	require.Len(t, paths, 2)
	assert.Equal(t, []string{"c1"}, paths[1])

	back(t, e, now)
	require.Len(t, paths, 3)
	assert.Empty(t, paths[2])
}

func TestSelectionChangedOncePerSettledIndex(t *testing.T) {
	counts := map[int]int{}
	e := startEngine(t, taralli.Config{
		RootData:           containerRoot(),
		Levels:             inlineLevels(),
		OnSelectionChanged: func(index int) { counts[index]++ },
	})
	now := time.Now()

	now = now.Add(60 * time.Millisecond)
	e.Tick(now)
	assert.Equal(t, 1, counts[0])

	now = settleAt(t, e, now, 1)
	// Extra idle ticks must not re-announce the same index.
	for i := 0; i < 20; i++ {
		now = now.Add(16 * time.Millisecond)
		e.Tick(now)
	}
	assert.Equal(t, 1, counts[0])
	assert.Equal(t, 1, counts[1])
}

func TestNewRequiresRootSource(t *testing.T) {
	_, err := taralli.New(taralli.Config{Levels: inlineLevels()})
	require.Error(t, err)
	assert.True(t, taralli.IsInfrastructureError(err))
}

func TestClosedEngineIgnoresInput(t *testing.T) {
	e := startEngine(t, taralli.Config{RootData: containerRoot(), Levels: inlineLevels()})
	require.NoError(t, e.Close())
	require.NoError(t, e.Close(), "close is idempotent")

	assert.False(t, e.HandleButton(taralli.ButtonEvent{Button: constants.VirtualButtonLeft}))
	e.HandleNav(taralli.NavEvent{Direction: constants.DirectionForward, Speed: 1})
	e.Tick(time.Now().Add(time.Second))
	assert.Equal(t, 0.0, e.TargetIndex())
}
