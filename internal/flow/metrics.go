package flow

// MeanDisplacement averages the per-frame mean step distance over the run.
type MeanDisplacement struct {
	sum     float64
	samples int
}

func NewMeanDisplacement() *MeanDisplacement { return &MeanDisplacement{} }

func (m *MeanDisplacement) Name() string { return "mean_displacement" }

func (m *MeanDisplacement) Observe(step FrameStep) {
	m.sum += step.MeanDisplacement
	m.samples++
}

func (m *MeanDisplacement) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanDisplacement) Reset() {
	m.sum = 0
	m.samples = 0
}

// LostFraction reports the worst per-frame fraction of lost points.
type LostFraction struct {
	max float64
}

func NewLostFraction() *LostFraction { return &LostFraction{} }

func (m *LostFraction) Name() string { return "lost_fraction" }

func (m *LostFraction) Observe(step FrameStep) {
	if len(step.Positions) == 0 {
		return
	}
	f := float64(step.Lost) / float64(len(step.Positions))
	if f > m.max {
		m.max = f
	}
}

func (m *LostFraction) Value() float64 { return m.max }
func (m *LostFraction) Reset()         { m.max = 0 }

// StatusCount counts point-frames that ended a step in one status, named
// frames_<status> in the run metrics.
type StatusCount struct {
	status Status
	count  int
}

func NewStatusCount(s Status) *StatusCount { return &StatusCount{status: s} }

func (m *StatusCount) Name() string { return "frames_" + m.status.String() }

func (m *StatusCount) Observe(step FrameStep) {
	for _, s := range step.Status {
		if s == m.status {
			m.count++
		}
	}
}

func (m *StatusCount) Value() float64 { return float64(m.count) }
func (m *StatusCount) Reset()         { m.count = 0 }

// ViolationCount counts frozen point-frames across the run.
type ViolationCount struct {
	count int
}

func NewViolationCount() *ViolationCount { return &ViolationCount{} }

func (m *ViolationCount) Name() string { return "violations" }

func (m *ViolationCount) Observe(step FrameStep) {
	for _, s := range step.Status {
		if s == Violation {
			m.count++
		}
	}
}

func (m *ViolationCount) Value() float64 { return float64(m.count) }
func (m *ViolationCount) Reset()         { m.count = 0 }

// DefaultMetrics is the standard metric set the track stage records.
func DefaultMetrics() []Metric {
	return []Metric{
		NewMeanDisplacement(),
		NewLostFraction(),
		NewViolationCount(),
		NewStatusCount(Lost),
		NewStatusCount(OutOfBounds),
	}
}
