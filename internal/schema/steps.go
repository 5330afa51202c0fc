package schema

// Steps derives the ordered wizard view from the schema's sections. Each step
// is the resolved field list of one section; section order is preserved and
// step membership stays decoupled from field identity. Schemas without
// sections (or with MultiStep unset) collapse into a single implicit step
// holding every field in declaration order.
func Steps(s Schema) [][]Field {
	if !s.MultiStep || len(s.Sections) == 0 {
		return [][]Field{append([]Field(nil), s.Fields...)}
	}

	index := make(map[string]Field, len(s.Fields))
	for _, f := range s.Fields {
		index[f.ID] = f
	}

	steps := make([][]Field, 0, len(s.Sections))
	for _, sec := range s.Sections {
		fields := make([]Field, 0, len(sec.FieldIDs))
		for _, id := range sec.FieldIDs {
			if f, ok := index[id]; ok {
				fields = append(fields, f)
			}
		}
		steps = append(steps, fields)
	}
	return steps
}

// StepOf returns the step index holding the given field id, or 0 when the
// field is not assigned to any section.
func StepOf(s Schema, fieldID string) int {
	for i, step := range Steps(s) {
		for _, f := range step {
			if f.ID == fieldID {
				return i
			}
		}
	}
	return 0
}
