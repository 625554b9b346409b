package enforce

import (
	"errors"
	"testing"
)

// abcFilter allows "a" after the prompt, "b" after that, then nothing.
// Prefixes are one token long at step 0 (the prompt sentinel).
func abcFilter(t *testing.T) *Filter {
	t.Helper()
	filter, err := NewAllowedTokensFilter(newABCTokenizer(), fixedOracle{byLen: map[int][]int{
		1: {1},
		2: {2},
		3: {},
	}})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	return filter
}

func TestCollectorStepBookkeeping(t *testing.T) {
	t.Parallel()

	filter := abcFilter(t)
	c := NewCollector(newABCTokenizer(), filter, 0)

	// Batch entries may report in any order within a step; counters are
	// kept per sequence.
	c.ReportRawLogits(1, []int{0}, []float32{0, 0, 0, 0, 0})
	c.ReportRawLogits(0, []int{0}, []float32{0, 0, 0, 0, 0})
	c.ReportRawLogits(0, []int{0, 1}, []float32{0, 0, 0, 0, 0})

	if c.Steps(0) != 2 || c.Steps(1) != 1 {
		t.Fatalf("unexpected step counters: seq0=%d seq1=%d", c.Steps(0), c.Steps(1))
	}
}

func TestCollectorCopiesBuffers(t *testing.T) {
	t.Parallel()

	filter := abcFilter(t)
	c := NewCollector(newABCTokenizer(), filter, 0)

	ids := []int{0}
	scores := []float32{1, 2, 3, 4, 5}
	c.ReportRawLogits(0, ids, scores)
	ids[0] = 9
	scores[1] = -100

	report, err := c.GenerateReport([]int{0, 1})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if got := report.Steps[0].ChosenScore; got != 2 {
		t.Fatalf("snapshot aliased host buffers: chosen score %v", got)
	}
}

func TestGenerateReport(t *testing.T) {
	t.Parallel()

	filter := abcFilter(t)
	c := NewCollector(newABCTokenizer(), filter, 2)

	// Step 0: "a" (id 1) has the second-best raw score among allowed
	// {1}; step 1: "b" (id 2) chosen.
	c.ReportRawLogits(0, []int{0}, []float32{0, 1.5, 9, 0, 0})
	c.ReportRawLogits(0, []int{0, 1}, []float32{0, 0, 2.5, 3, 0})

	report, err := c.GenerateReport([]int{0, 1, 2})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(report.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(report.Steps))
	}

	s0 := report.Steps[0]
	if s0.Step != 0 || s0.ChosenID != 1 || s0.ChosenText != "a" {
		t.Fatalf("unexpected step 0: %+v", s0)
	}
	if s0.ChosenScore != 1.5 || s0.ChosenRank != 1 {
		t.Fatalf("unexpected step 0 scoring: %+v", s0)
	}
	if len(s0.AllowedIDs) != 1 || s0.AllowedIDs[0] != 1 {
		t.Fatalf("unexpected step 0 allowed set: %v", s0.AllowedIDs)
	}

	s1 := report.Steps[1]
	if s1.Step != 1 || s1.ChosenID != 2 || s1.ChosenScore != 2.5 {
		t.Fatalf("unexpected step 1: %+v", s1)
	}
	if s1.Stuck {
		t.Fatal("step 1 wrongly flagged stuck")
	}
}

func TestGenerateReportFlagsStuckStep(t *testing.T) {
	t.Parallel()

	filter := abcFilter(t)
	c := NewCollector(newABCTokenizer(), filter, 0)

	c.ReportRawLogits(0, []int{0}, []float32{0, 1, 0, 0, 0})
	c.ReportRawLogits(0, []int{0, 1}, []float32{0, 0, 1, 0, 0})
	// Step 2 was scored but the allowed set is empty: generation stalled
	// and no token exists at this position of the final sequence.
	c.ReportRawLogits(0, []int{0, 1, 2}, []float32{0, 0, 0, 1, 0})

	report, err := c.GenerateReport([]int{0, 1, 2})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(report.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(report.Steps))
	}
	last := report.Steps[2]
	if !last.Stuck {
		t.Fatal("stuck step not flagged")
	}
	if last.ChosenID != -1 {
		t.Fatalf("stuck step has chosen id %d", last.ChosenID)
	}
	for _, s := range report.Steps[:2] {
		if s.Stuck {
			t.Fatalf("step %d wrongly flagged stuck", s.Step)
		}
	}
}

func TestGenerateReportSingleUse(t *testing.T) {
	t.Parallel()

	filter := abcFilter(t)
	c := NewCollector(newABCTokenizer(), filter, 0)
	c.ReportRawLogits(0, []int{0}, []float32{0, 1, 0, 0, 0})

	if _, err := c.GenerateReport([]int{0, 1}); err != nil {
		t.Fatalf("first report: %v", err)
	}
	if _, err := c.GenerateReport([]int{0, 1}); !errors.Is(err, ErrReportConsumed) {
		t.Fatalf("expected ErrReportConsumed, got %v", err)
	}
}
