package rbm

// Statistics is a point-in-time summary of a set's container layout.
// It is always derived from a Set and has no lifecycle of its own.
type Statistics struct {
	Containers            uint64 `json:"n_containers"`
	ArrayContainers       uint64 `json:"n_array_containers"`
	ArrayContainerBytes   uint64 `json:"n_bytes_array_containers"`
	ArrayContainerValues  uint64 `json:"n_values_array_containers"`
	RunContainers         uint64 `json:"n_run_containers"`
	RunContainerValues    uint64 `json:"n_values_run_containers"`
	RunContainerBytes     uint64 `json:"n_bytes_run_containers"`
	BitmapContainers      uint64 `json:"n_bitset_containers"`
	BitmapContainerValues uint64 `json:"n_values_bitset_containers"`
	BitmapContainerBytes  uint64 `json:"n_bytes_bitset_containers"`
	MaxValue              uint32 `json:"max_value"`
	MinValue              uint32 `json:"min_value"`
	SumValue              uint64 `json:"sum_value"`
	Cardinality           uint64 `json:"cardinality"`
}

// Statistics computes the statistics record for s. An empty set reports zeros.
func (s *Set) Statistics() Statistics {
	st := s.rb.Stats()

	out := Statistics{
		Containers:            st.Containers,
		ArrayContainers:       st.ArrayContainers,
		ArrayContainerBytes:   st.ArrayContainerBytes,
		ArrayContainerValues:  st.ArrayContainerValues,
		RunContainers:         st.RunContainers,
		RunContainerValues:    st.RunContainerValues,
		RunContainerBytes:     st.RunContainerBytes,
		BitmapContainers:      st.BitmapContainers,
		BitmapContainerValues: st.BitmapContainerValues,
		BitmapContainerBytes:  st.BitmapContainerBytes,
		Cardinality:           st.Cardinality,
	}
	if s.rb.IsEmpty() {
		return out
	}

	out.MinValue = s.rb.Minimum()
	out.MaxValue = s.rb.Maximum()
	s.ForEach(func(v uint32) bool {
		out.SumValue += uint64(v)
		return true
	})
	return out
}

// Fields returns the record as ordered name/value pairs, using the same names
// as the JSON encoding.
func (st Statistics) Fields() []Field {
	return []Field{
		{"n_containers", st.Containers},
		{"n_array_containers", st.ArrayContainers},
		{"n_bytes_array_containers", st.ArrayContainerBytes},
		{"n_values_array_containers", st.ArrayContainerValues},
		{"n_run_containers", st.RunContainers},
		{"n_values_run_containers", st.RunContainerValues},
		{"n_bytes_run_containers", st.RunContainerBytes},
		{"n_bitset_containers", st.BitmapContainers},
		{"n_values_bitset_containers", st.BitmapContainerValues},
		{"n_bytes_bitset_containers", st.BitmapContainerBytes},
		{"max_value", uint64(st.MaxValue)},
		{"min_value", uint64(st.MinValue)},
		{"sum_value", st.SumValue},
		{"cardinality", st.Cardinality},
	}
}

// Field is one named entry of a Statistics record.
type Field struct {
	Name  string
	Value uint64
}
