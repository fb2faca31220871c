package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollectorBasic(t *testing.T) {
	p := NewPerfCollector(10)

	p.StartStep()
	p.StartPhase(PhasePush)
	time.Sleep(time.Millisecond)
	p.StartPhase(PhaseGather)
	time.Sleep(time.Millisecond)
	p.EndStep()

	stats := p.Stats()
	if stats.AvgStepDuration < 2*time.Millisecond {
		t.Errorf("AvgStepDuration = %v, want >= 2ms", stats.AvgStepDuration)
	}
	if stats.PhaseAvg[PhasePush] < time.Millisecond {
		t.Errorf("push phase avg = %v, want >= 1ms", stats.PhaseAvg[PhasePush])
	}
	if stats.PhaseAvg[PhaseGather] < time.Millisecond {
		t.Errorf("gather phase avg = %v, want >= 1ms", stats.PhaseAvg[PhaseGather])
	}
	if stats.StepsPerSecond <= 0 {
		t.Error("StepsPerSecond should be positive")
	}

	pctSum := 0.0
	for _, pct := range stats.PhasePct {
		pctSum += pct
	}
	if pctSum > 101 {
		t.Errorf("phase percentages sum to %v, cannot exceed 100", pctSum)
	}
}

func TestPerfCollectorEmptyStats(t *testing.T) {
	p := NewPerfCollector(5)
	stats := p.Stats()
	if stats.AvgStepDuration != 0 || stats.StepsPerSecond != 0 {
		t.Errorf("empty collector stats = %+v, want zeros", stats)
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("empty stats maps must be non-nil")
	}
}

func TestPerfCollectorRollingWindow(t *testing.T) {
	p := NewPerfCollector(2)
	for i := 0; i < 5; i++ {
		p.StartStep()
		p.EndStep()
	}
	// Only the window size worth of samples is retained.
	if p.sampleCount != 2 {
		t.Errorf("sampleCount = %d, want 2", p.sampleCount)
	}
}

func TestPerfStatsToCSV(t *testing.T) {
	stats := PerfStats{
		AvgStepDuration: 1500 * time.Microsecond,
		MinStepDuration: time.Millisecond,
		MaxStepDuration: 2 * time.Millisecond,
		StepsPerSecond:  666.0,
		PhasePct: map[string]float64{
			PhasePush:   40,
			PhaseGather: 30,
		},
	}
	row := stats.ToCSV(100)
	if row.WindowEndStep != 100 || row.AvgStepUs != 1500 {
		t.Errorf("row = %+v", row)
	}
	if row.PushPct != 40 || row.GatherPct != 30 || row.RedistPct != 0 {
		t.Errorf("phase percentages = %+v", row)
	}
}
