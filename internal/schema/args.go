package schema

// Args holds validated, normalized tool arguments.
// Accessors return the zero value when a parameter is absent; use Has to tell the two apart.
type Args map[string]any

// Has reports whether the parameter was supplied or defaulted.
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Raw returns the normalized value of a parameter.
func (a Args) Raw(name string) (any, bool) {
	v, ok := a[name]
	return v, ok
}

func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

func (a Args) Number(name string) float64 {
	f, _ := a[name].(float64)
	return f
}

// Int truncates a number parameter toward zero.
func (a Args) Int(name string) int {
	return int(a.Number(name))
}

func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

// Float32s converts an array<number> parameter.
func (a Args) Float32s(name string) []float32 {
	items, _ := a[name].([]any)
	return float32s(items)
}

// Float32Matrix converts an array<array<number>> parameter.
func (a Args) Float32Matrix(name string) [][]float32 {
	rows, _ := a[name].([]any)
	if rows == nil {
		return nil
	}
	out := make([][]float32, 0, len(rows))
	for _, row := range rows {
		items, _ := row.([]any)
		out = append(out, float32s(items))
	}
	return out
}

func float32s(items []any) []float32 {
	if items == nil {
		return nil
	}
	out := make([]float32, 0, len(items))
	for _, item := range items {
		f, _ := item.(float64)
		out = append(out, float32(f))
	}
	return out
}
