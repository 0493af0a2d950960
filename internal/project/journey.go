package project

// StageTemplate describes one stage of the journey pipeline template.
type StageTemplate struct {
	Name    string `yaml:"name" json:"name"`
	IconKey string `yaml:"icon" json:"icon"`
}

// DefaultJourneyTemplate returns the fixed 10-stage pipeline every new
// project starts with.
func DefaultJourneyTemplate() []StageTemplate {
	return []StageTemplate{
		{Name: "RFP Received", IconKey: "FileText"},
		{Name: "Initial Analysis", IconKey: "Search"},
		{Name: "Scope Definition", IconKey: "Target"},
		{Name: "Cost Estimation", IconKey: "Calculator"},
		{Name: "Resource Planning", IconKey: "Users"},
		{Name: "Risk Assessment", IconKey: "AlertTriangle"},
		{Name: "Proposal Draft", IconKey: "FileEdit"},
		{Name: "Legal Review", IconKey: "Scale"},
		{Name: "Final Approval", IconKey: "CheckCircle"},
		{Name: "Submission", IconKey: "Send"},
	}
}

// NewJourney instantiates a journey from a template with every stage pending.
func NewJourney(template []StageTemplate) []JourneyBlock {
	journey := make([]JourneyBlock, len(template))
	for i, st := range template {
		journey[i] = JourneyBlock{Name: st.Name, Status: StagePending, IconKey: st.IconKey}
	}
	return journey
}

// Frontier returns the index of the first non-completed stage, or
// len(journey) when every stage is completed.
func Frontier(journey []JourneyBlock) int {
	for i, b := range journey {
		if b.Status != StageCompleted {
			return i
		}
	}
	return len(journey)
}

// AdvanceFrontier moves the journey forward by exactly one stage: the
// frontier stage becomes completed and the next stage becomes in-progress.
// Returns false without mutating when the frontier is already at the last
// stage (or past it), making repeated calls no-ops.
func AdvanceFrontier(journey []JourneyBlock) bool {
	f := Frontier(journey)
	if f >= len(journey)-1 {
		return false
	}
	journey[f].Status = StageCompleted
	journey[f+1].Status = StageInProgress
	return true
}
