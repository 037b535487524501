package taralli

import "context"

// Item represents a single entry at one level of the menu tree.
// ID is the only key that stays stable across data reloads; everything
// else may change when a level is recomputed from raw children.
type Item struct {
	ID            string      // Unique within its level; identity key for persistence
	Name          string      // Display text for the item
	DisplayRef    string      // Icon/image/color reference resolved by the presentation adapter
	NotActionable bool        // Prevent commit for this item even when it is a plain leaf
	Page          *PageContent // Scrollable content shown instead of children when drilled into
	ChildrenRef   string      // Opaque handle passed to an async children loader
	Raw           any         // Raw record this item was mapped from; retained for recompute
}

// HasPage returns true if drilling into this item opens a content page
// rather than a child level.
func (it Item) HasPage() bool {
	return it.Page != nil
}

// PageContent is the scrollable content surface carried by a page item.
type PageContent struct {
	Title string
	Body  []string
}

// LevelDescriptor tells the engine how to interpret one depth of the tree:
// how raw records become Items, which items can be drilled into, and where
// their children come from. Levels beyond the configured list reuse the
// last descriptor, so depth is unbounded.
//
// Children sources are mutually exclusive: set ChildrenKey for inline
// children stored under a key of the raw record, or Children for an async
// loader. ChildrenKey wins if both are set.
type LevelDescriptor struct {
	Map         func(raw any) Item
	IsContainer func(item Item) bool
	ChildrenKey string
	Children    func(ctx context.Context, item Item, depth int) ([]any, error)
}

// descriptorAt resolves the descriptor for a depth, reusing the last one
// for levels beyond the configured list.
func descriptorAt(levels []LevelDescriptor, depth int) LevelDescriptor {
	if len(levels) == 0 {
		return LevelDescriptor{}
	}
	if depth >= len(levels) {
		return levels[len(levels)-1]
	}
	return levels[depth]
}

// DefaultItemMapper maps a raw map[string]any record with "id", "name",
// "icon", "notActionable" and optional "page" keys into an Item. Used when
// a level descriptor does not provide its own mapper.
func DefaultItemMapper(raw any) Item {
	m, ok := raw.(map[string]any)
	if !ok {
		return Item{Raw: raw}
	}

	item := Item{Raw: raw}
	if v, ok := m["id"].(string); ok {
		item.ID = v
	}
	if v, ok := m["name"].(string); ok {
		item.Name = v
	}
	if v, ok := m["icon"].(string); ok {
		item.DisplayRef = v
	}
	if v, ok := m["notActionable"].(bool); ok {
		item.NotActionable = v
	}
	if v, ok := m["childrenRef"].(string); ok {
		item.ChildrenRef = v
	}
	if v, ok := m["page"].(map[string]any); ok {
		page := &PageContent{}
		if t, ok := v["title"].(string); ok {
			page.Title = t
		}
		if body, ok := v["body"].([]any); ok {
			for _, line := range body {
				if s, ok := line.(string); ok {
					page.Body = append(page.Body, s)
				}
			}
		}
		item.Page = page
	}
	return item
}

// mapItems applies the descriptor's mapper (or the default) to a raw
// child list.
func mapItems(desc LevelDescriptor, raws []any) []Item {
	mapper := desc.Map
	if mapper == nil {
		mapper = DefaultItemMapper
	}
	items := make([]Item, len(raws))
	for i, raw := range raws {
		items[i] = mapper(raw)
	}
	return items
}

// inlineChildren looks up a raw record's children under the descriptor's
// ChildrenKey. Returns nil when the record is not a map or the key is
// absent.
func inlineChildren(desc LevelDescriptor, item Item) []any {
	if desc.ChildrenKey == "" {
		return nil
	}
	m, ok := item.Raw.(map[string]any)
	if !ok {
		return nil
	}
	kids, ok := m[desc.ChildrenKey].([]any)
	if !ok {
		return nil
	}
	return kids
}

// isContainer reports whether an item can be drilled into for children.
// The descriptor's predicate wins when set; otherwise an item is a
// container if it carries inline children or names a loader handle while
// a loader exists.
func isContainer(desc LevelDescriptor, item Item) bool {
	if desc.IsContainer != nil {
		return desc.IsContainer(item)
	}
	if item.Page != nil {
		return false
	}
	if len(inlineChildren(desc, item)) > 0 {
		return true
	}
	return desc.Children != nil && item.ChildrenRef != ""
}
