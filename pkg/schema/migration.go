package schema

import (
	"strconv"

	"github.com/helixdb/helix-go/pkg/convert"
	"github.com/helixdb/helix-go/pkg/herr"
	"github.com/helixdb/helix-go/pkg/value"
)

// Cast names an explicit, declared type coercion applied during a property
// remapping. Per spec §9 ("Don't speculate about intent — if a property's
// type changes without a declared cast, surface a compile-time error"), a
// field whose type changes across a migration step MUST name one of these;
// there is no implicit/guessed coercion.
type Cast int

const (
	CastNone Cast = iota
	CastToString
	CastToI64
	CastToF64
	CastToBool
)

// PropertyRemap moves (and optionally casts or defaults) one property
// during a migration step.
type PropertyRemap struct {
	SourceField string
	TargetField string
	Default     *value.Value // used when SourceField is absent from the record
	Cast        Cast
}

// ItemMigration remaps one schema item (a node or edge label) from one
// version to the next.
type ItemMigration struct {
	SourceItem string
	TargetItem string
	Properties []PropertyRemap
}

// Migration is one `(fromVersion -> toVersion)` ladder step, covering
// every item that changes shape at that version boundary.
type Migration struct {
	From, To uint32
	Items    []ItemMigration
}

func (m Migration) itemFor(label string) (ItemMigration, bool) {
	for _, it := range m.Items {
		if it.SourceItem == label {
			return it, true
		}
	}
	return ItemMigration{}, false
}

// UpgradeNode walks the migration ladder starting at (label, version),
// applying every registered step until no further step originates at the
// current version, and returns the upgraded label, version, and property
// map. If no migrations apply, the input is returned unchanged.
//
// Migrations are always forward (spec §9): there is no mechanism to
// downgrade, and a record already at the latest version is a no-op.
func (s *Schema) UpgradeNode(label string, version uint32, props map[string]value.Value) (string, uint32, map[string]value.Value, error) {
	return s.upgrade(label, version, props)
}

// UpgradeEdge is the edge-record equivalent of UpgradeNode.
func (s *Schema) UpgradeEdge(label string, version uint32, props map[string]value.Value) (string, uint32, map[string]value.Value, error) {
	return s.upgrade(label, version, props)
}

func (s *Schema) upgrade(label string, version uint32, props map[string]value.Value) (string, uint32, map[string]value.Value, error) {
	curLabel, curVersion, curProps := label, version, props

	for {
		advanced := false
		for _, m := range s.migrations {
			if m.From != curVersion {
				continue
			}
			item, ok := m.itemFor(curLabel)
			if !ok {
				// This migration step doesn't touch curLabel; the ladder
				// still advances the version number for every item so
				// reads stay consistent with spec's "always upgraded
				// through all registered migrations" contract.
				curVersion = m.To
				advanced = true
				break
			}
			newProps, err := applyRemaps(item.Properties, curProps)
			if err != nil {
				return "", 0, nil, err
			}
			curLabel = item.TargetItem
			curVersion = m.To
			curProps = newProps
			advanced = true
			break
		}
		if !advanced {
			break
		}
	}

	return curLabel, curVersion, curProps, nil
}

func applyRemaps(remaps []PropertyRemap, props map[string]value.Value) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(props))
	for k, v := range props {
		out[k] = v
	}

	for _, r := range remaps {
		v, present := props[r.SourceField]
		if !present {
			if r.Default != nil {
				out[r.TargetField] = *r.Default
			}
			delete(out, r.SourceField)
			continue
		}
		cast, err := applyCast(v, r.Cast)
		if err != nil {
			return nil, herr.Wrap(herr.KindSchemaMismatch, err, "migrating field %q -> %q", r.SourceField, r.TargetField)
		}
		if r.SourceField != r.TargetField {
			delete(out, r.SourceField)
		}
		out[r.TargetField] = cast
	}
	return out, nil
}

func applyCast(v value.Value, c Cast) (value.Value, error) {
	switch c {
	case CastNone:
		return v, nil
	case CastToString:
		if s, ok := v.AsString(); ok {
			return value.Str(s), nil
		}
		if f, ok := v.AsFloat64(); ok {
			return value.Str(strconv.FormatFloat(f, 'g', -1, 64)), nil
		}
		if b, ok := v.AsBool(); ok {
			return value.Str(strconv.FormatBool(b)), nil
		}
		return value.Value{}, herr.New(herr.KindSchemaMismatch, "cannot cast %s to String", v.TypeName())
	case CastToI64:
		if i, ok := v.AsInt64(); ok {
			return value.I64(i), nil
		}
		if f, ok := v.AsFloat64(); ok {
			return value.I64(int64(f)), nil
		}
		if s, ok := v.AsString(); ok {
			i, ok := convert.ToInt64(s)
			if !ok {
				return value.Value{}, herr.New(herr.KindSchemaMismatch, "cannot cast %q to I64", s)
			}
			return value.I64(i), nil
		}
		return value.Value{}, herr.New(herr.KindSchemaMismatch, "cannot cast %s to I64", v.TypeName())
	case CastToF64:
		if f, ok := v.AsFloat64(); ok {
			return value.F64(f), nil
		}
		if s, ok := v.AsString(); ok {
			f, ok := convert.ToFloat64(s)
			if !ok {
				return value.Value{}, herr.New(herr.KindSchemaMismatch, "cannot cast %q to F64", s)
			}
			return value.F64(f), nil
		}
		return value.Value{}, herr.New(herr.KindSchemaMismatch, "cannot cast %s to F64", v.TypeName())
	case CastToBool:
		if b, ok := v.AsBool(); ok {
			return value.Bool(b), nil
		}
		if s, ok := v.AsString(); ok {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return value.Value{}, herr.Wrap(herr.KindSchemaMismatch, err, "cannot cast %q to Boolean", s)
			}
			return value.Bool(b), nil
		}
		return value.Value{}, herr.New(herr.KindSchemaMismatch, "cannot cast %s to Boolean", v.TypeName())
	default:
		return value.Value{}, herr.New(herr.KindSchemaMismatch, "unknown cast kind")
	}
}
