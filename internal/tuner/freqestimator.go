package tuner

// Profile selects the controller coefficients, per spec.md section 4.9.
type Profile int

// Supported profiles.
const (
	ProfileIntact Profile = iota
	ProfileResponsive
	ProfileGradual
)

// coefficients returns (Kp, Ki) for a profile.
func coefficients(p Profile) (kp, ki float64) {
	switch p {
	case ProfileResponsive:
		return 1e-5, 1e-7
	case ProfileGradual:
		return 2e-6, 2e-8
	default: // ProfileIntact
		return 0, 0
	}
}

// FreqEstimator implements spec.md section 4.9's frequency estimator: two
// cascaded 10x FIR decimators (100x total) feeding a leaky integrator and
// proportional path, producing a scale factor near 1.0.
type FreqEstimator struct {
	profile  Profile
	kp, ki   float64
	target   float64
	stage1   *Decimator
	stage2   *Decimator
	integral float64
	scale    float64
}

// NewFreqEstimator allocates a FreqEstimator for the given target latency
// (in whatever units the caller feeds Update; the Tuner uses seconds) and
// controller profile.
func NewFreqEstimator(target float64, profile Profile) *FreqEstimator {
	kp, ki := coefficients(profile)
	return &FreqEstimator{
		profile: profile,
		kp:      kp,
		ki:      ki,
		target:  target,
		stage1:  NewDecimator(),
		stage2:  NewDecimator(),
		scale:   1.0,
	}
}

// Update feeds one new latency sample (called once per scaling_interval
// per spec.md) and returns the current scale estimate. Intact profile
// always reports exactly 1.0, bypassing the filter cascade.
func (e *FreqEstimator) Update(latency float64) float64 {
	if e.profile == ProfileIntact {
		return 1.0
	}

	out1, ok1 := e.stage1.Push(latency)
	if !ok1 {
		return e.scale
	}
	out2, ok2 := e.stage2.Push(out1)
	if !ok2 {
		return e.scale
	}

	err := out2 - e.target
	e.integral += err
	e.scale = 1 + e.kp*err + e.ki*e.integral
	return e.scale
}

// Scale returns the most recently computed scale without feeding a new
// sample.
func (e *FreqEstimator) Scale() float64 { return e.scale }
