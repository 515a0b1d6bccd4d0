package domain

import "testing"

func TestNextTransitionStaysWithinRange(t *testing.T) {
	for step := FirstStep; step < LastStep; step++ {
		tr := NextTransition(step, StatusDraft)
		if tr.To != step+1 || tr.Complete {
			t.Fatalf("step %d: unexpected transition %+v", step, tr)
		}
		if !tr.To.Valid() {
			t.Fatalf("step %d: transition left range: %+v", step, tr)
		}
	}
}

func TestNextTransitionCompletesOnLastStep(t *testing.T) {
	tr := NextTransition(LastStep, StatusDraft)
	if !tr.Complete || tr.To != LastStep {
		t.Fatalf("expected completion without increment, got %+v", tr)
	}

	audit := tr.Apply(Audit{Status: StatusDraft, CurrentStep: LastStep})
	if audit.Status != StatusCompleted || audit.CurrentStep != LastStep {
		t.Fatalf("unexpected audit after completion: %+v", audit)
	}

	again := NextTransition(LastStep, StatusCompleted)
	if !again.Noop() {
		t.Fatalf("expected no-op on completed audit, got %+v", again)
	}
}

func TestPreviousTransitionIsNoopOnFirstStep(t *testing.T) {
	if tr := PreviousTransition(FirstStep); !tr.Noop() {
		t.Fatalf("expected no-op, got %+v", tr)
	}
	if tr := PreviousTransition(StepBuyIt); tr.To != StepChooseIt {
		t.Fatalf("expected step %d, got %+v", StepChooseIt, tr)
	}
}

func TestApplyNeverRevertsCompletion(t *testing.T) {
	audit := Audit{Status: StatusCompleted, CurrentStep: LastStep}
	audit = PreviousTransition(audit.CurrentStep).Apply(audit)
	if audit.Status != StatusCompleted {
		t.Fatalf("completion must be one-way, got %s", audit.Status)
	}
	if audit.CurrentStep != StepExpertise {
		t.Fatalf("expected step %d, got %d", StepExpertise, audit.CurrentStep)
	}
}

func TestEvaluationToggle(t *testing.T) {
	cases := []struct {
		current  Evaluation
		selected Evaluation
		want     Evaluation
	}{
		{EvalUnset, EvalOui, EvalOui},
		{EvalOui, EvalOui, EvalUnset},
		{EvalOui, EvalNon, EvalNon},
		{EvalPartiel, EvalPartiel, EvalUnset},
	}
	for _, tc := range cases {
		if got := tc.current.Toggle(tc.selected); got != tc.want {
			t.Fatalf("%q toggle %q: got %q, want %q", tc.current, tc.selected, got, tc.want)
		}
	}

	if got := EvalUnset.Toggle(EvalOui).Toggle(EvalOui); got != EvalUnset {
		t.Fatalf("double toggle must return to unset, got %q", got)
	}
}

func TestStepCategory(t *testing.T) {
	if cat, ok := StepFindIt.Category(); !ok || cat != CategoryFindIt {
		t.Fatalf("expected findIt, got %q %v", cat, ok)
	}
	if _, ok := StepGoldenRules.Category(); ok {
		t.Fatalf("golden rules step has no category")
	}
}
