package schema

// inferredMapping returns the mapping fragment implied by a kind.
func inferredMapping(k Kind) map[string]any {
	switch k {
	case String:
		return map[string]any{"type": "text"}
	case Integer:
		return map[string]any{"type": "long"}
	case Float:
		return map[string]any{"type": "double"}
	case Boolean:
		return map[string]any{"type": "boolean"}
	case Date:
		return map[string]any{"type": "date", "format": "strict_date"}
	case Time:
		return map[string]any{"type": "date"}
	}
	return map[string]any{}
}

// DeriveMapping builds the index mapping document:
//
//	{"properties": {"<attr>": {...}, "created_at": {"type": "date"}, "updated_at": {"type": "date"}}}
//
// An attribute's explicit mapping is merged key by key over the fragment inferred
// from its kind, so nested keys it does not mention keep their inferred values.
func (s *Schema) DeriveMapping() map[string]any {
	props := make(map[string]any, len(s.attrs)+2)
	for _, a := range s.attrs {
		props[a.Name] = mergeMapping(inferredMapping(a.Kind), a.Mapping)
	}
	props[FieldCreatedAt] = inferredMapping(Time)
	props[FieldUpdatedAt] = inferredMapping(Time)
	return map[string]any{"properties": props}
}

// mergeMapping returns base with override deep-merged into it. Neither input is modified.
func mergeMapping(base, override map[string]any) map[string]any {
	out := copyMap(base)
	if out == nil {
		out = make(map[string]any, len(override))
	}
	for k, ov := range override {
		om, oIsMap := ov.(map[string]any)
		bm, bIsMap := out[k].(map[string]any)
		if oIsMap && bIsMap {
			out[k] = mergeMapping(bm, om)
			continue
		}
		out[k] = copyValue(ov)
	}
	return out
}
