package domain

// Step is a zero-indexed wizard position.
type Step int

const (
	StepInfo Step = iota
	StepSeeIt
	StepFindIt
	StepChooseIt
	StepBuyIt
	StepGoldenRules
	StepExpertise
	StepRecap
)

const (
	FirstStep = StepInfo
	LastStep  = StepRecap
)

func (s Step) Valid() bool {
	return s >= FirstStep && s <= LastStep
}

// Category returns the rubric category edited on this step, if any.
func (s Step) Category() (CategoryKey, bool) {
	switch s {
	case StepSeeIt:
		return CategorySeeIt, true
	case StepFindIt:
		return CategoryFindIt, true
	case StepChooseIt:
		return CategoryChooseIt, true
	case StepBuyIt:
		return CategoryBuyIt, true
	default:
		return "", false
	}
}

// Transition describes the effect of a wizard navigation request.
type Transition struct {
	From     Step `json:"from"`
	To       Step `json:"to"`
	Complete bool `json:"complete"`
}

func (t Transition) Noop() bool {
	return t.From == t.To && !t.Complete
}

// NextTransition moves one step forward, or completes the audit from the
// last step. A completed audit on the last step cannot move further.
func NextTransition(step Step, status AuditStatus) Transition {
	if step < LastStep {
		return Transition{From: step, To: step + 1}
	}
	if status == StatusCompleted {
		return Transition{From: step, To: step}
	}
	return Transition{From: step, To: step, Complete: true}
}

// PreviousTransition moves one step back; it is a no-op on the first step.
func PreviousTransition(step Step) Transition {
	if step > FirstStep {
		return Transition{From: step, To: step - 1}
	}
	return Transition{From: step, To: step}
}

// Apply returns the audit state after the transition. Completion never
// reverts.
func (t Transition) Apply(a Audit) Audit {
	a.CurrentStep = t.To
	if t.Complete {
		a.Status = StatusCompleted
	}
	return a
}
