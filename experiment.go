package qosnet

// experiment.go runs a simulation through a sequence of mode phases, with ticks
// scheduled in virtual time by an event manager rather than by the wall clock.
// A phased run is how the behavior of the three regimes is compared: the same
// network is driven through NORMAL, then CONGESTED, then DDOS, and every tick is traced.

import (
	"fmt"
	"time"

	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
)

// Phase is a number of consecutive ticks run in one mode
type Phase struct {
	Mode  Mode `json:"mode" yaml:"mode"`
	Ticks int  `json:"ticks" yaml:"ticks"`
}

// DefaultPhases runs each regime for the given number of ticks
func DefaultPhases(ticks int) []Phase {
	return []Phase{{Mode: Normal, Ticks: ticks}, {Mode: Congested, Ticks: ticks}, {Mode: DDoS, Ticks: ticks}}
}

// Experiment describes a phased run
type Experiment struct {
	Phases []Phase

	// virtual time between ticks
	Interval time.Duration
}

// expRun is the context carried by the tick events of one experiment
type expRun struct {
	sim      *Simulation
	tm       *TraceManager
	start    time.Time
	interval float64

	// the mode of tick i is modes[i]
	modes []Mode
	tick  int
}

// RunExperiment starts the simulation and drives it through the experiment's phases,
// tracing every tick into tm (which may be nil).  It returns the number of ticks run.
func RunExperiment(sim *Simulation, exp Experiment, tm *TraceManager) (int, error) {
	if !(exp.Interval > 0) {
		return 0, fmt.Errorf("experiment interval %v is not positive", exp.Interval)
	}

	run := &expRun{sim: sim, tm: tm, interval: exp.Interval.Seconds()}
	for _, phase := range exp.Phases {
		if phase.Ticks < 0 {
			return 0, fmt.Errorf("phase %s has %d ticks", phase.Mode, phase.Ticks)
		}
		for idx := 0; idx < phase.Ticks; idx++ {
			run.modes = append(run.modes, phase.Mode)
		}
	}
	if len(run.modes) == 0 {
		return 0, nil
	}

	if tm.Active() {
		tm.TopoName = sim.TopologyName()
	}

	sim.SetRunning(true)

	// virtual time zero is the moment the run starts; no link was updated after it
	run.start = sim.Snapshot().Time

	evtMgr := evtm.New()
	evtMgr.Schedule(run, nil, tickEvent, vrtime.SecondsToTime(run.interval))
	evtMgr.Run(float64(len(run.modes)+1) * run.interval)

	return run.tick, nil
}

// tickEvent is the event handler for one tick of an experiment.  It applies the
// mode of the tick's phase, ticks the simulation at the corresponding instant, traces
// the result and schedules the next tick.
func tickEvent(evtMgr *evtm.EventManager, context any, data any) any {
	run := context.(*expRun)
	if run.tick >= len(run.modes) {
		return nil
	}

	mode := run.modes[run.tick]
	if run.sim.Mode() != mode {
		run.sim.SetMode(mode)
	}

	vrt := evtMgr.CurrentTime()
	now := run.start.Add(time.Duration(vrt.Seconds() * float64(time.Second)))
	snap := run.sim.TickAt(now)
	run.tm.AddTick(vrt, snap)
	run.tick += 1

	if run.tick < len(run.modes) {
		evtMgr.Schedule(run, nil, tickEvent, vrtime.SecondsToTime(run.interval))
	}
	return nil
}
