// Package layout scaffolds a store from a declarative HCL manifest. A
// manifest names groups, datasets with their column schemas, and raw
// directories; Apply builds the hierarchy in memory and hands it to an open
// store in one splice per top-level block.
package layout

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"

	"github.com/handzsujt/data-dir/datadir"
	"github.com/handzsujt/data-dir/frame"
)

// Manifest is the root of a layout file.
type Manifest struct {
	Groups   []GroupBlock   `hcl:"group,block"`
	Datasets []DatasetBlock `hcl:"dataset,block"`
	Raws     []RawBlock     `hcl:"raw,block"`
}

// GroupBlock declares a group and its children.
type GroupBlock struct {
	Name       string         `hcl:"name,label"`
	Attributes cty.Value      `hcl:"attributes,optional"`
	Groups     []GroupBlock   `hcl:"group,block"`
	Datasets   []DatasetBlock `hcl:"dataset,block"`
	Raws       []RawBlock     `hcl:"raw,block"`
}

// DatasetBlock declares an empty dataset with a column schema.
type DatasetBlock struct {
	Name       string        `hcl:"name,label"`
	Attributes cty.Value     `hcl:"attributes,optional"`
	Columns    []ColumnBlock `hcl:"column,block"`
}

// ColumnBlock declares one column of a dataset.
type ColumnBlock struct {
	Name        string `hcl:"name,label"`
	Type        string `hcl:"type"`
	Required    bool   `hcl:"required,optional"`
	Description string `hcl:"description,optional"`
}

// RawBlock declares an opaque directory.
type RawBlock struct {
	Name string `hcl:"name,label"`
}

// Load reads and decodes a manifest file.
func Load(path string) (*Manifest, error) {
	var m Manifest
	if err := hclsimple.DecodeFile(path, nil, &m); err != nil {
		return nil, fmt.Errorf("load layout %s: %w", path, err)
	}
	return &m, nil
}

// Parse decodes manifest source. The filename selects the syntax and is used
// in diagnostics; it should end in .hcl.
func Parse(filename string, src []byte) (*Manifest, error) {
	var m Manifest
	if err := hclsimple.Decode(filename, src, nil, &m); err != nil {
		return nil, fmt.Errorf("parse layout %s: %w", filename, err)
	}
	return &m, nil
}

// Apply creates every element the manifest declares under root. Each
// top-level block is built in memory first, so a failure deep in a block
// leaves the store without that block rather than with half of it.
func (m *Manifest) Apply(root *datadir.Group) error {
	for _, gb := range m.Groups {
		sub, err := buildGroup(gb)
		if err != nil {
			return fmt.Errorf("group %q: %w", gb.Name, err)
		}
		if err := root.Set(gb.Name, sub); err != nil {
			return fmt.Errorf("group %q: %w", gb.Name, err)
		}
	}
	for _, db := range m.Datasets {
		ds, err := buildDataset(db)
		if err != nil {
			return fmt.Errorf("dataset %q: %w", db.Name, err)
		}
		if err := root.Set(db.Name, ds); err != nil {
			return fmt.Errorf("dataset %q: %w", db.Name, err)
		}
	}
	for _, rb := range m.Raws {
		if err := root.Set(rb.Name, &datadir.Raw{}); err != nil {
			return fmt.Errorf("raw %q: %w", rb.Name, err)
		}
	}
	return nil
}

func buildGroup(gb GroupBlock) (*datadir.Group, error) {
	g := datadir.NewGroup()
	attrs, err := attrsFromCty(gb.Attributes)
	if err != nil {
		return nil, err
	}
	for k, v := range attrs {
		g.Attrs[k] = v
	}
	for _, ngb := range gb.Groups {
		sub, err := buildGroup(ngb)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", ngb.Name, err)
		}
		if err := g.Set(ngb.Name, sub); err != nil {
			return nil, fmt.Errorf("group %q: %w", ngb.Name, err)
		}
	}
	for _, db := range gb.Datasets {
		ds, err := buildDataset(db)
		if err != nil {
			return nil, fmt.Errorf("dataset %q: %w", db.Name, err)
		}
		if err := g.Set(db.Name, ds); err != nil {
			return nil, fmt.Errorf("dataset %q: %w", db.Name, err)
		}
	}
	for _, rb := range gb.Raws {
		if err := g.Set(rb.Name, &datadir.Raw{}); err != nil {
			return nil, fmt.Errorf("raw %q: %w", rb.Name, err)
		}
	}
	return g, nil
}

func buildDataset(db DatasetBlock) (*datadir.DataSet, error) {
	cols := make([]frame.Column, len(db.Columns))
	for i, cb := range db.Columns {
		cols[i] = frame.Column{
			Name:        cb.Name,
			Type:        frame.Type(cb.Type),
			Required:    cb.Required,
			Description: cb.Description,
		}
	}
	f, err := frame.New(cols)
	if err != nil {
		return nil, err
	}
	ds := datadir.NewDataSet(f)
	attrs, err := attrsFromCty(db.Attributes)
	if err != nil {
		return nil, err
	}
	for k, v := range attrs {
		ds.Attrs[k] = v
	}
	return ds, nil
}

func attrsFromCty(v cty.Value) (map[string]any, error) {
	attrs := map[string]any{}
	if v.IsNull() {
		return attrs, nil
	}
	t := v.Type()
	if !t.IsObjectType() && !t.IsMapType() {
		return nil, fmt.Errorf("attributes must be an object, got %s", t.FriendlyName())
	}
	for k, av := range v.AsValueMap() {
		gv, err := ctyToGo(av)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		attrs[k] = gv
	}
	return attrs, nil
}

func ctyToGo(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	t := v.Type()
	switch {
	case t == cty.String:
		return v.AsString(), nil
	case t == cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return f, nil
	case t == cty.Bool:
		return v.True(), nil
	case t.IsTupleType() || t.IsListType() || t.IsSetType():
		vals := v.AsValueSlice()
		out := make([]any, len(vals))
		for i, ev := range vals {
			gv, err := ctyToGo(ev)
			if err != nil {
				return nil, err
			}
			out[i] = gv
		}
		return out, nil
	case t.IsObjectType() || t.IsMapType():
		out := map[string]any{}
		for k, ev := range v.AsValueMap() {
			gv, err := ctyToGo(ev)
			if err != nil {
				return nil, err
			}
			out[k] = gv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", t.FriendlyName())
	}
}
