package ensemble

// SkillTracker maintains bounded, paired predicted/realized series per
// prediction source and turns them into blend weights. One tracker per
// trading instance; it is not safe for concurrent use and does not need
// to be.
type SkillTracker struct {
	sources []string
	window  int
	kappa   float64

	predicted map[string][]float64
	realized  map[string][]float64
	lastPred  map[string]float64
	pendingOK map[string]bool
}

// NewSkillTracker creates a tracker over a fixed, ordered source set.
func NewSkillTracker(sources []string, window int, kappa float64) *SkillTracker {
	return &SkillTracker{
		sources:   sources,
		window:    window,
		kappa:     kappa,
		predicted: make(map[string][]float64, len(sources)),
		realized:  make(map[string][]float64, len(sources)),
		lastPred:  make(map[string]float64, len(sources)),
		pendingOK: make(map[string]bool, len(sources)),
	}
}

// Observe records the signal each source emitted for the current bar. The
// pair is completed by the next Realize call once the outcome is known.
func (t *SkillTracker) Observe(source string, signal float64) {
	t.lastPred[source] = signal
	t.pendingOK[source] = true
}

// Realize closes out pending observations against the realized outcome
// (e.g. the next bar's return) and advances the rolling series.
func (t *SkillTracker) Realize(outcome float64) {
	for _, src := range t.sources {
		if !t.pendingOK[src] {
			continue
		}
		t.predicted[src] = trim(append(t.predicted[src], t.lastPred[src]), t.window)
		t.realized[src] = trim(append(t.realized[src], outcome), t.window)
		t.pendingOK[src] = false
	}
}

// Weights returns the current blend weights in source order. With no
// usable history every statistic is neutral and the result is uniform.
func (t *SkillTracker) Weights() []float64 {
	ic := make([]float64, len(t.sources))
	vol := make([]float64, len(t.sources))
	for i, src := range t.sources {
		ic[i] = RollingCorrelation(t.predicted[src], t.realized[src], t.window)
		vol[i] = RollingVolatility(t.predicted[src], t.window)
	}
	return BlendWeights(ic, vol, t.kappa)
}

// Sources returns the tracker's fixed source order.
func (t *SkillTracker) Sources() []string { return t.sources }

func trim(xs []float64, n int) []float64 {
	if len(xs) > n {
		xs = xs[len(xs)-n:]
	}
	return xs
}
