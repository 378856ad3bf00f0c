package fill

// State is the step a fill pass reached for a control.
type State string

const (
	StateIdle       State = "idle"
	StateScanning   State = "scanning"
	StateExtracting State = "extracting"
	StateMatching   State = "matching"
	StateInjecting  State = "injecting"
)

// Outcome is what happened to a single control during a fill pass.
type Outcome string

const (
	// OutcomeFilled means a value was injected.
	OutcomeFilled Outcome = "filled"
	// OutcomeNoLabel means no label hint was found.
	OutcomeNoLabel Outcome = "no_label"
	// OutcomeNoMatch means the label matched no field key.
	OutcomeNoMatch Outcome = "no_match"
	// OutcomeNoValue means the key matched but the profile holds no value for it.
	OutcomeNoValue Outcome = "no_value"
	// OutcomeFailed means label extraction or injection failed for this control only.
	OutcomeFailed Outcome = "failed"
)

// FieldResult records the handling of one control.
type FieldResult struct {
	Index   int     `json:"index"`
	Control string  `json:"control"`
	Label   string  `json:"label,omitempty"`
	Source  string  `json:"source,omitempty"`
	Key     string  `json:"key,omitempty"`
	Custom  bool    `json:"custom,omitempty"`
	Outcome Outcome `json:"outcome"`
	State   State   `json:"state"`
	Error   string  `json:"error,omitempty"`
}

// Report summarizes one fill pass.
type Report struct {
	URL     string        `json:"url"`
	Dialect string        `json:"dialect"`
	Filled  int           `json:"filled"`
	Results []FieldResult `json:"results"`
}

// Count returns how many controls ended with outcome.
func (r *Report) Count(outcome Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}
