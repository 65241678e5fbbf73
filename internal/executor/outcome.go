package executor

// Step identifies one executor sub-step.
type Step string

const (
	StepRefresh             Step = "refresh-index"
	StepSimulate            Step = "simulate-upgrade"
	StepSecurityUpgrade     Step = "security-upgrade"
	StepConservativeUpgrade Step = "conservative-upgrade"
	StepFullUpgrade         Step = "full-upgrade"
	StepAutoRemove          Step = "autoremove"
	StepAutoClean           Step = "autoclean"
	StepAppUpdates          Step = "app-updates"
	StepJournalVacuum       Step = "journal-vacuum"
)

// StepStatus classifies how a sub-step ended.
type StepStatus string

const (
	StatusOK      StepStatus = "ok"
	StatusWarned  StepStatus = "warned"
	StatusSkipped StepStatus = "skipped"
	// StatusFailed marks the fatal step that aborted the run.
	StatusFailed StepStatus = "failed"
)

// StepResult records the outcome of one attempted sub-step.
type StepResult struct {
	Step   Step
	Status StepStatus
	Detail string
	Err    error
}

// Outcome is the ordered record of every sub-step attempted in a run.
type Outcome struct {
	Steps []StepResult
}

// Warnings counts the sub-steps that failed non-fatally.
func (o Outcome) Warnings() int {
	count := 0
	for _, step := range o.Steps {
		if step.Status == StatusWarned {
			count++
		}
	}
	return count
}

// Find returns the result for a step, if attempted.
func (o Outcome) Find(step Step) (StepResult, bool) {
	for _, result := range o.Steps {
		if result.Step == step {
			return result, true
		}
	}
	return StepResult{}, false
}
