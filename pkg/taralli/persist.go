package taralli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// StateVersion is the persisted navigation-state schema version. Restore
// accepts only this version; anything else is treated as a cold start.
const StateVersion = 1

// PersistedFrame is one ancestor level in the persisted snapshot. The
// item id is the identity key; the index is only a fallback for levels
// saved without one.
type PersistedFrame struct {
	SelectedIndex  int    `json:"selectedIndex"`
	SelectedItemID string `json:"selectedItemId"`
}

// PersistedState is the versioned navigation-state blob.
type PersistedState struct {
	Version      int              `json:"version"`
	Depth        int              `json:"depth"`
	CurrentIndex float64          `json:"currentIndex"`
	Stack        []PersistedFrame `json:"stack"`
}

// Storage persists navigation-state blobs by key.
type Storage interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
}

// FileStorage stores blobs as JSON files under a directory.
type FileStorage struct {
	Dir string
}

func (fs FileStorage) path(key string) string {
	return filepath.Join(fs.Dir, key+".json")
}

// Load reads a blob. A missing file returns nil data and no error.
func (fs FileStorage) Load(key string) ([]byte, error) {
	data, err := os.ReadFile(fs.path(key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

// Save writes a blob, creating the directory if needed.
func (fs FileStorage) Save(key string, data []byte) error {
	if err := os.MkdirAll(fs.Dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(fs.path(key), data, 0644)
}

// snapshot serializes the navigation stack and current index. Called on
// a fixed interval from Run and once more on Close.
func (e *Engine) snapshot() error {
	if e.cfg.Storage == nil || e.cfg.StorageKey == "" {
		return nil
	}

	frames := e.stack.Frames()
	st := PersistedState{
		Version:      StateVersion,
		Depth:        len(frames),
		CurrentIndex: e.motion.Current(),
		Stack:        make([]PersistedFrame, len(frames)),
	}
	for i, f := range frames {
		st.Stack[i] = PersistedFrame{
			SelectedIndex:  f.SelectedIndex,
			SelectedItemID: f.SelectedItem.ID,
		}
	}

	data, err := json.Marshal(st)
	if err != nil {
		return NewInfrastructureError("snapshot", err)
	}
	if err := e.cfg.Storage.Save(e.cfg.StorageKey, data); err != nil {
		return NewInfrastructureError("snapshot", err)
	}
	return nil
}

// restore re-derives each ancestor level from the currently available
// data and matches the saved item identity. The very first level with no
// match truncates the walk at that depth; the engine never guesses a
// deeper state than the data supports.
func (e *Engine) restore(_ context.Context) error {
	data, err := e.cfg.Storage.Load(e.cfg.StorageKey)
	if err != nil {
		return NewInfrastructureError("restore", err)
	}
	if len(data) == 0 {
		return nil
	}

	var st PersistedState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("%w: %v", ErrNotRestorable, err)
	}
	if st.Version != StateVersion {
		return fmt.Errorf("%w: version %d", ErrNotRestorable, st.Version)
	}

	full := true
	for depth, pf := range st.Stack {
		idx := matchFrame(e.items, pf)
		if idx < 0 {
			full = false
			break
		}
		item := e.items[idx]
		desc := descriptorAt(e.levels, depth)
		if item.HasPage() || !isContainer(desc, item) {
			full = false
			break
		}

		raws, err := e.loadChildren(item, depth)
		if err != nil {
			e.log.Warn("restore truncated by loader failure", "depth", depth, "error", err)
			full = false
			break
		}
		if len(raws) == 0 {
			full = false
			break
		}

		kids := mapItems(descriptorAt(e.levels, depth+1), raws)
		e.stack.Push(Frame{
			Items:         e.items,
			Raw:           e.raw,
			SelectedIndex: idx,
			CurrentIndex:  float64(idx),
			SelectedItem:  item,
			Crumb:         "crumb:" + item.ID,
		})
		e.crumbs = append([]*visual{newCrumbVisual(item, 0)}, e.crumbs...)
		for s, c := range e.crumbs {
			c.slot = s
		}
		e.items = kids
		e.raw = raws
	}

	e.motion.SetBounds(len(e.items))
	if full && len(st.Stack) == st.Depth {
		e.motion.Set(st.CurrentIndex)
	} else {
		e.motion.Set(0)
	}
	e.depthTo = float64(e.stack.Depth())
	e.depthFrom = e.depthTo

	e.log.Info("state restored", "depth", e.stack.Depth(), "requested", st.Depth, "truncated", !full)
	return nil
}

// matchFrame resolves a persisted frame against the current item list:
// by id when one was saved, by index otherwise. Returns -1 for no match.
func matchFrame(items []Item, pf PersistedFrame) int {
	if pf.SelectedItemID != "" {
		for i, it := range items {
			if it.ID == pf.SelectedItemID {
				return i
			}
		}
		return -1
	}
	if pf.SelectedIndex >= 0 && pf.SelectedIndex < len(items) {
		return pf.SelectedIndex
	}
	return -1
}

func newCrumbVisual(item Item, slot int) *visual {
	return &visual{
		id:    "crumb:" + item.ID,
		kind:  ElementCrumb,
		item:  item,
		state: visualCrumb,
		slot:  slot,
	}
}
