package source

// KeyValue is one named key column value.
type KeyValue struct {
	Column string
	Value  any
}

// KeySpec maps key column names to values, in primary key order.
type KeySpec []KeyValue

// Value returns the value for column and whether it was present.
func (k KeySpec) Value(column string) (any, bool) {
	for _, kv := range k {
		if kv.Column == column {
			return kv.Value, true
		}
	}
	return nil, false
}

// Columns returns the column names in order.
func (k KeySpec) Columns() []string {
	out := make([]string, len(k))
	for i, kv := range k {
		out[i] = kv.Column
	}
	return out
}

// Values returns the values in order.
func (k KeySpec) Values() []any {
	out := make([]any, len(k))
	for i, kv := range k {
		out[i] = kv.Value
	}
	return out
}

// Map returns the spec as an unordered map.
func (k KeySpec) Map() map[string]any {
	out := make(map[string]any, len(k))
	for _, kv := range k {
		out[kv.Column] = kv.Value
	}
	return out
}
