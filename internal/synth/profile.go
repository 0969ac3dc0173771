package synth

// Cycle is a sinusoidal boom/bust term: Amplitude × sin(2π t / PeriodDays).
type Cycle struct {
	Amplitude  float64
	PeriodDays float64
}

// Profile describes the shape of one asset class.
type Profile struct {
	Name   string
	Growth float64 // total fractional growth of the linear trend over the full span
	Cycles []Cycle
	Noise  float64 // standard deviation of the Gaussian term, as a fraction of base price
}

const daysPerYear = 365

// Built-in asset-class profiles.
var (
	BroadEquity = Profile{
		Name:   "broad-equity",
		Growth: 2.0,
		Cycles: []Cycle{
			{Amplitude: 0.3, PeriodDays: daysPerYear * 7},
			{Amplitude: 0.1, PeriodDays: daysPerYear * 3},
		},
		Noise: 0.02,
	}
	Bond = Profile{
		Name:   "bond",
		Growth: 0.8,
		Noise:  0.005,
	}
	Gold = Profile{
		Name:   "gold",
		Growth: 1.2,
		Cycles: []Cycle{
			{Amplitude: 0.3, PeriodDays: daysPerYear * 5},
		},
		Noise: 0.03,
	}
	DefaultGrowth = Profile{
		Name:   "default-growth",
		Growth: 1.5,
		Noise:  0.02,
	}
)

// defaultProfiles maps ticker identity to a profile. Tickers not listed use DefaultGrowth.
func defaultProfiles() map[string]Profile {
	return map[string]Profile{
		"VTI": BroadEquity,
		"BND": Bond,
		"GLD": Gold,
	}
}
