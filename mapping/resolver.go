package mapping

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/gauss-project/gauss/schema"
	"github.com/gauss-project/gauss/xerrors"
)

// ConverterLookup is the subset of the plugin registry the resolver needs:
// whether a named converter exists, so an unknown name can be rejected at
// resolve time rather than discovered on the hot path.
type ConverterLookup interface {
	HasConverter(name string) bool
}

// builderOp is one call the mapping script made against the builder,
// recorded in declaration order before being bound against the source
// schema and converter registry.
type builderOp struct {
	kind       string // "field", "exclude", "computed"
	sourceName string
	targetDef  *lua.LTable
}

// Resolve runs script once against source and the empty-fielded target
// skeleton (target carries only DDL-level attrs: table name, engine, order
// key), producing a MapSchema. script is a Lua program that calls the
// builder operations field/exclude/computed/has, registered as global
// functions; its output is this declarative op list, never executed again
// after resolution. Grounded on spec.md's "script execution model": no
// filesystem, network, or process-state access is exposed to it.
func Resolve(source schema.Schema, targetSkeleton schema.Schema, script string, converters ConverterLookup) (MapSchema, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	// Only base + table + string libraries: no os/io, matching the
	// sandboxing requirement that the script cannot touch the filesystem,
	// network, or process state.
	for _, pair := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
	} {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(pair.fn), NRet: 0, Protect: true}); err != nil {
			return MapSchema{}, xerrors.Fatal(err, "mapping.Resolve", "openLibs")
		}
		_ = pair.name
	}
	// The base library's file loaders read from disk; remove them.
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("require", lua.LNil)

	var ops []builderOp
	sourceNames := make(map[string]int, len(source.Fields))
	for i, f := range source.Fields {
		sourceNames[f.Name] = i
	}

	L.SetGlobal("field", L.NewFunction(func(l *lua.LState) int {
		name := l.CheckString(1)
		def := l.CheckTable(2)
		ops = append(ops, builderOp{kind: "field", sourceName: name, targetDef: def})
		return 0
	}))
	L.SetGlobal("exclude", L.NewFunction(func(l *lua.LState) int {
		name := l.CheckString(1)
		ops = append(ops, builderOp{kind: "exclude", sourceName: name})
		return 0
	}))
	L.SetGlobal("computed", L.NewFunction(func(l *lua.LState) int {
		def := l.CheckTable(1)
		ops = append(ops, builderOp{kind: "computed", targetDef: def})
		return 0
	}))
	L.SetGlobal("has", L.NewFunction(func(l *lua.LState) int {
		name := l.CheckString(1)
		_, ok := sourceNames[name]
		l.Push(lua.LBool(ok))
		return 1
	}))

	if err := L.DoString(script); err != nil {
		return MapSchema{}, xerrors.Config(fmt.Errorf("mapping script failed: %w", err), "mapping.Resolve", "run")
	}

	target := targetSkeleton.Clone()
	target.Fields = nil

	var fields []FieldMap
	seenTargets := make(map[string]bool)

	addTargetField := func(def *lua.LTable) (schema.Field, error) {
		f, err := fieldFromLuaTable(def)
		if err != nil {
			return schema.Field{}, err
		}
		if seenTargets[f.Name] {
			return schema.Field{}, fmt.Errorf("%w: %q", xerrors.ErrDuplicateTargetField, f.Name)
		}
		seenTargets[f.Name] = true
		return f, nil
	}

	for _, op := range ops {
		switch op.kind {
		case "field":
			idx, ok := sourceNames[op.sourceName]
			if !ok {
				return MapSchema{}, xerrors.Config(fmt.Errorf("%w: %q", xerrors.ErrUnknownSourceField, op.sourceName), "mapping.Resolve", "field")
			}
			targetField, err := addTargetField(op.targetDef)
			if err != nil {
				return MapSchema{}, xerrors.Config(err, "mapping.Resolve", "field")
			}
			converterName := stringTableField(op.targetDef, "converter")
			kind := Passthrough
			if converterName != "" {
				if converters != nil && !converters.HasConverter(converterName) {
					return MapSchema{}, xerrors.Config(fmt.Errorf("%w: %q", xerrors.ErrUnknownConverter, converterName), "mapping.Resolve", "field")
				}
				kind = Plugin
			}
			target.Fields = append(target.Fields, targetField)
			fields = append(fields, FieldMap{
				Source:        &FieldRef{Index: idx, Name: op.sourceName},
				Target:        &targetField,
				Converter:     kind,
				ConverterName: converterName,
			})
		case "exclude":
			idx, ok := sourceNames[op.sourceName]
			if !ok {
				return MapSchema{}, xerrors.Config(fmt.Errorf("%w: %q", xerrors.ErrUnknownSourceField, op.sourceName), "mapping.Resolve", "exclude")
			}
			fields = append(fields, FieldMap{
				Source:    &FieldRef{Index: idx, Name: op.sourceName},
				Converter: Excluded,
			})
		case "computed":
			targetField, err := addTargetField(op.targetDef)
			if err != nil {
				return MapSchema{}, xerrors.Config(err, "mapping.Resolve", "computed")
			}
			target.Fields = append(target.Fields, targetField)
			fields = append(fields, FieldMap{
				Target:    &targetField,
				Converter: Computed,
			})
		}
	}

	return MapSchema{Source: source, Target: target, Fields: fields}, nil
}

// fieldFromLuaTable reads {name=..., type=..., type_attrs={...}, properties={...}}
// off a target-definition table into a schema.Field.
func fieldFromLuaTable(t *lua.LTable) (schema.Field, error) {
	name := stringTableField(t, "name")
	if name == "" {
		return schema.Field{}, fmt.Errorf("target field definition missing name")
	}
	typeName := stringTableField(t, "type")
	return schema.Field{
		Name:       name,
		Type:       schema.FieldType{Name: typeName, Attrs: tableField(t, "type_attrs")},
		Properties: tableField(t, "properties"),
	}, nil
}

func stringTableField(t *lua.LTable, key string) string {
	if t == nil {
		return ""
	}
	v := t.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

func tableField(t *lua.LTable, key string) map[string]any {
	if t == nil {
		return nil
	}
	sub, ok := t.RawGetString(key).(*lua.LTable)
	if !ok {
		return nil
	}
	out := make(map[string]any)
	sub.ForEach(func(k, v lua.LValue) {
		out[k.String()] = luaToGo(v)
	})
	if len(out) == 0 {
		return nil
	}
	return out
}

func luaToGo(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LString:
		return string(val)
	case lua.LNumber:
		return float64(val)
	case lua.LBool:
		return bool(val)
	case *lua.LTable:
		out := make(map[string]any)
		val.ForEach(func(k, vv lua.LValue) { out[k.String()] = luaToGo(vv) })
		return out
	default:
		return nil
	}
}
