package qosnet

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/iti/evt/vrtime"
)

func TestRunExperimentPhases(t *testing.T) {
	sim := testSimulation(t)
	tm := CreateTraceManager("phases", true)

	ticks, err := RunExperiment(sim, Experiment{Phases: DefaultPhases(5), Interval: tickInterval}, tm)
	if err != nil {
		t.Fatalf("Expected the experiment to run, got %v", err)
	}
	if ticks != 15 {
		t.Errorf("Expected 15 ticks, got %d", ticks)
	}
	if len(tm.Traces) != 15 {
		t.Fatalf("Expected 15 traces, got %d", len(tm.Traces))
	}

	wantModes := []Mode{Normal, Congested, DDoS}
	for idx, trc := range tm.Traces {
		if trc.Mode != wantModes[idx/5] {
			t.Errorf("Expected tick %d in %s, got %s", idx, wantModes[idx/5], trc.Mode)
		}
		if trc.Tick != int64(idx+1) {
			t.Errorf("Expected trace %d to record tick %d, got %d", idx, idx+1, trc.Tick)
		}
		if trc.Throughput <= 0 {
			t.Errorf("Expected traffic at tick %d", idx)
		}
	}

	snap := sim.Snapshot()
	wantTime := t0.Add(15 * tickInterval)
	if d := snap.Time.Sub(wantTime); d > time.Millisecond || d < -time.Millisecond {
		t.Errorf("Expected the last tick at %v, got %v", wantTime, snap.Time)
	}
	if tm.TopoName != "hospital" {
		t.Errorf("Expected the topology name traced, got %q", tm.TopoName)
	}

	filename := filepath.Join(t.TempDir(), "trace.yaml")
	if written, err := tm.WriteToFile(filename); err != nil || !written {
		t.Errorf("Expected the trace written, got %v %v", written, err)
	}
}

func TestRunExperimentRejectsBadInterval(t *testing.T) {
	sim := testSimulation(t)
	if _, err := RunExperiment(sim, Experiment{Phases: DefaultPhases(5)}, nil); err == nil {
		t.Error("Expected a zero interval to be rejected")
	}
	if n, err := RunExperiment(sim, Experiment{Interval: tickInterval}, nil); err != nil || n != 0 {
		t.Errorf("Expected an empty experiment to run no ticks, got %d %v", n, err)
	}
}

func TestInactiveTraceManager(t *testing.T) {
	tm := CreateTraceManager("off", false)
	tm.AddTick(vrtime.SecondsToTime(0.0), &Snapshot{})
	if len(tm.Traces) != 0 {
		t.Error("Expected an inactive trace manager to record nothing")
	}
	if written, err := tm.WriteToFile(filepath.Join(t.TempDir(), "t.json")); written || err != nil {
		t.Errorf("Expected nothing written, got %v %v", written, err)
	}
}
