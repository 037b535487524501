// Package menudef loads the appliance's menu tree and engine tuning from
// a TOML definition file. Item labels may be i18n message IDs resolved
// against a go-i18n bundle, so one definition serves every shipped
// locale.
package menudef

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/BrandonKowalski/taralli/pkg/taralli"
)

// ChildrenKey is the raw-record key nested items are stored under.
const ChildrenKey = "items"

// Definition is a parsed menu definition, ready to construct an engine.
type Definition struct {
	Root   []any
	Levels []taralli.LevelDescriptor
	Motion taralli.MotionConfig
	Arc    taralli.ArcConfig
}

type fileDef struct {
	Engine engineDef `toml:"engine"`
	Items  []itemDef `toml:"item"`
}

type engineDef struct {
	Smoothing     float64 `toml:"smoothing"`
	Step          float64 `toml:"step"`
	SpeedCap      float64 `toml:"speed_cap"`
	QuietMillis   int     `toml:"quiet_millis"`
	ScaleFloor    float64 `toml:"scale_floor"`
	ScaleFactor   float64 `toml:"scale_factor"`
	BaseOffset    float64 `toml:"base_offset"`
	MaxRadius     float64 `toml:"max_radius"`
	CurveFactor   float64 `toml:"curve_factor"`
	ItemSize      float64 `toml:"item_size"`
	Padding       float64 `toml:"padding"`
	MaxNearSlots  int     `toml:"max_near_slots"`
	CrumbMinScale float64 `toml:"crumb_min_scale"`
}

type itemDef struct {
	ID            string    `toml:"id"`
	Label         string    `toml:"label"`
	Icon          string    `toml:"icon"`
	NotActionable bool      `toml:"not_actionable"`
	Page          *pageDef  `toml:"page"`
	Items         []itemDef `toml:"item"`
}

type pageDef struct {
	Title string   `toml:"title"`
	Body  []string `toml:"body"`
}

// Load reads and parses a menu definition file. loc may be nil, in which
// case labels are used verbatim.
func Load(path string, loc *Localizer) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("menudef: read %s: %w", path, err)
	}
	return Parse(data, loc)
}

// Parse parses a TOML menu definition.
func Parse(data []byte, loc *Localizer) (*Definition, error) {
	var f fileDef
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("menudef: parse: %w", err)
	}
	if len(f.Items) == 0 {
		return nil, fmt.Errorf("menudef: definition has no items")
	}

	root := make([]any, len(f.Items))
	for i, it := range f.Items {
		rec, err := it.record(loc)
		if err != nil {
			return nil, err
		}
		root[i] = rec
	}

	def := &Definition{
		Root: root,
		Levels: []taralli.LevelDescriptor{{
			Map:         taralli.DefaultItemMapper,
			ChildrenKey: ChildrenKey,
		}},
		Motion: taralli.DefaultMotionConfig(),
		Arc:    taralli.DefaultArcConfig(),
	}
	f.Engine.apply(def)
	return def, nil
}

// record converts an item definition into the raw map shape the engine's
// default mapper understands, recursing into nested children.
func (it itemDef) record(loc *Localizer) (map[string]any, error) {
	if it.ID == "" {
		return nil, fmt.Errorf("menudef: item with label %q has no id", it.Label)
	}

	name := it.Label
	if loc != nil {
		name = loc.Resolve(it.Label)
	}

	rec := map[string]any{
		"id":   it.ID,
		"name": name,
	}
	if it.Icon != "" {
		rec["icon"] = it.Icon
	}
	if it.NotActionable {
		rec["notActionable"] = true
	}
	if it.Page != nil {
		title := it.Page.Title
		if loc != nil {
			title = loc.Resolve(title)
		}
		body := make([]any, len(it.Page.Body))
		for i, line := range it.Page.Body {
			body[i] = line
		}
		rec["page"] = map[string]any{
			"title": title,
			"body":  body,
		}
	}
	if len(it.Items) > 0 {
		kids := make([]any, len(it.Items))
		for i, kid := range it.Items {
			rec2, err := kid.record(loc)
			if err != nil {
				return nil, err
			}
			kids[i] = rec2
		}
		rec[ChildrenKey] = kids
	}
	return rec, nil
}

// apply overlays non-zero tuning values onto the defaults.
func (ed engineDef) apply(def *Definition) {
	if ed.Smoothing > 0 {
		def.Motion.Smoothing = ed.Smoothing
	}
	if ed.Step > 0 {
		def.Motion.Step = ed.Step
	}
	if ed.SpeedCap > 0 {
		def.Motion.SpeedCap = ed.SpeedCap
	}
	if ed.QuietMillis > 0 {
		def.Motion.QuietPeriod = time.Duration(ed.QuietMillis) * time.Millisecond
	}
	if ed.ScaleFloor > 0 {
		def.Arc.ScaleFloor = ed.ScaleFloor
	}
	if ed.ScaleFactor > 0 {
		def.Arc.ScaleFactor = ed.ScaleFactor
	}
	if ed.BaseOffset != 0 {
		def.Arc.BaseOffset = ed.BaseOffset
	}
	if ed.MaxRadius > 0 {
		def.Arc.MaxRadius = ed.MaxRadius
	}
	if ed.CurveFactor > 0 {
		def.Arc.CurveFactor = ed.CurveFactor
	}
	if ed.ItemSize > 0 {
		def.Arc.ItemSize = ed.ItemSize
	}
	if ed.Padding > 0 {
		def.Arc.Padding = ed.Padding
	}
	if ed.MaxNearSlots > 0 {
		def.Arc.MaxNearSlots = ed.MaxNearSlots
	}
	if ed.CrumbMinScale > 0 {
		def.Arc.CrumbMinScale = ed.CrumbMinScale
	}
}
