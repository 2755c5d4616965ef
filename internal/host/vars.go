package host

// Color is an RGB triple in [0, 1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

var (
	White = Color{R: 1, G: 1, B: 1}
	Red   = Color{R: 1}
)

// Vars are the named variables handed to a particle effect.
type Vars struct {
	Floats map[string]float64 `json:"floats,omitempty"`
	Colors map[string]Color   `json:"colors,omitempty"`
}

// NewVars returns an empty variable set.
func NewVars() Vars {
	return Vars{Floats: make(map[string]float64), Colors: make(map[string]Color)}
}

// SetFloat sets a float variable.
func (v Vars) SetFloat(name string, f float64) Vars {
	v.Floats[name] = f
	return v
}

// SetColor sets a color variable.
func (v Vars) SetColor(name string, c Color) Vars {
	v.Colors[name] = c
	return v
}
