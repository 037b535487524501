package taralli_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonKowalski/taralli/pkg/taralli"
)

func TestStackLIFOOrder(t *testing.T) {
	s := taralli.NewStack()
	require.True(t, s.IsEmpty())
	require.Nil(t, s.Pop())
	require.Nil(t, s.Peek())

	s.Push(taralli.Frame{SelectedItem: taralli.Item{ID: "root"}})
	s.Push(taralli.Frame{SelectedItem: taralli.Item{ID: "mid"}})
	s.Push(taralli.Frame{SelectedItem: taralli.Item{ID: "deep"}})
	assert.Equal(t, 3, s.Depth())

	assert.Equal(t, "deep", s.Peek().SelectedItem.ID)
	assert.Equal(t, 3, s.Depth(), "peek must not remove")

	assert.Equal(t, "deep", s.Pop().SelectedItem.ID)
	assert.Equal(t, "mid", s.Pop().SelectedItem.ID)
	assert.Equal(t, "root", s.Pop().SelectedItem.ID)
	assert.True(t, s.IsEmpty())
}

func TestStackFramePreservesContents(t *testing.T) {
	s := taralli.NewStack()
	items := []taralli.Item{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	s.Push(taralli.Frame{
		Items:         items,
		SelectedIndex: 1,
		CurrentIndex:  1.25,
		SelectedItem:  items[1],
	})

	f := s.Pop()
	require.NotNil(t, f)
	assert.Equal(t, items, f.Items)
	assert.Equal(t, 1, f.SelectedIndex)
	assert.Equal(t, 1.25, f.CurrentIndex)
}

func TestStackFramesRootFirst(t *testing.T) {
	s := taralli.NewStack()
	s.Push(taralli.Frame{SelectedItem: taralli.Item{ID: "root"}})
	s.Push(taralli.Frame{SelectedItem: taralli.Item{ID: "deep"}})

	frames := s.Frames()
	require.Len(t, frames, 2)
	assert.Equal(t, "root", frames[0].SelectedItem.ID)
	assert.Equal(t, "deep", frames[1].SelectedItem.ID)

	// The returned slice is a copy.
	frames[0].SelectedItem.ID = "mutated"
	assert.Equal(t, "root", s.Frames()[0].SelectedItem.ID)

	s.Clear()
	assert.True(t, s.IsEmpty())
}
