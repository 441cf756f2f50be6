package qosnet

// sim.go holds the Simulation, which owns a topology, the mode and running flags,
// and the alert log, and drives them one tick at a time.
//
// One tick is: clear every link's offered flows, generate new ones (only when running),
// update every link, score every link, trim the alert log, and publish a snapshot.
// Ticks and control operations are serialized on one mutex; readers are handed the
// most recently published snapshot and never wait for a tick in progress.

import (
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slices"
)

var simLogger = log.New(os.Stdout, "QOSNET INFO: ", log.Ltime)

// Options configures a Simulation.  The zero value simulates the default hospital
// topology on the wall clock.
type Options struct {
	// Topo is the network to simulate; nil selects DefaultTopoDesc
	Topo *TopoDesc

	// AlertLogPerSec bounds how many alerts per second are echoed to the log, 0 silences them
	AlertLogPerSec float64

	// Clock is consulted by Tick; nil selects time.Now
	Clock func() time.Time
}

// Simulation is the engine.  Create it with NewSimulation.
type Simulation struct {
	mu sync.Mutex

	desc    *TopoDesc
	topo    *Topology
	mode    Mode
	running bool
	ticks   int64

	alerts   *alertLog
	analyzer *congestionAnalyzer
	gen      *trafficGenerator

	// analysis of each link (by arena index) at its most recent update
	analyses []Analysis

	clock          func() time.Time
	alertLogPerSec float64
	rngs           samplerFactory

	published atomic.Pointer[Snapshot]
}

// NewSimulation validates the topology description and builds a stopped simulation in NORMAL mode
func NewSimulation(opts Options) (*Simulation, error) {
	return newSimulation(opts, func(name string) sampler { return createSampler(name) })
}

func newSimulation(opts Options, rngs samplerFactory) (*Simulation, error) {
	sim := new(Simulation)

	desc := opts.Topo
	if desc == nil {
		desc = DefaultTopoDesc()
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	// keep a private copy, Reset rebuilds from it
	sim.desc = &TopoDesc{Name: desc.Name, Hub: desc.Hub,
		Attackers: slices.Clone(desc.Attackers), Nodes: slices.Clone(desc.Nodes), Cables: slices.Clone(desc.Cables)}

	sim.clock = opts.Clock
	if sim.clock == nil {
		sim.clock = time.Now
	}
	sim.alertLogPerSec = opts.AlertLogPerSec
	sim.rngs = rngs

	if err := sim.rebuild(); err != nil {
		return nil, err
	}
	sim.publish(sim.clock())
	return sim, nil
}

// rebuild creates fresh topology, links, alerts and generator.  The caller holds the lock
// (or has exclusive access during construction).
func (sim *Simulation) rebuild() error {
	now := sim.clock()

	// every build draws fresh streams, so a reset does not replay the samples of the previous build
	topo, err := buildTopology(sim.desc, now, sim.rngs)
	if err != nil {
		return err
	}

	sim.topo = topo
	sim.alerts = createAlertLog(sim.alertLogPerSec)
	sim.analyzer = createCongestionAnalyzer(sim.alerts)
	sim.gen = createTrafficGenerator(sim.rngs("traffic"))
	sim.analyses = make([]Analysis, len(topo.Links))
	sim.mode = Normal
	sim.running = false
	sim.ticks = 0
	return nil
}

// SetRunning starts (true) or pauses (false) traffic generation
func (sim *Simulation) SetRunning(running bool) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	if sim.running != running {
		if running {
			simLogger.Println("simulation started")
		} else {
			simLogger.Println("simulation paused")
		}
	}
	sim.running = running
	sim.publish(sim.clock())
}

// SetMode selects the offered-load regime, effective from the next tick
func (sim *Simulation) SetMode(mode Mode) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	if sim.mode != mode {
		simLogger.Printf("mode %s -> %s\n", sim.mode, mode)
	}
	sim.mode = mode
	sim.publish(sim.clock())
}

// Reset rebuilds the topology and links, clears the alerts, and leaves the
// simulation stopped in NORMAL mode
func (sim *Simulation) Reset() {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	// the description was validated when the simulation was created, so the build cannot fail
	if err := sim.rebuild(); err != nil {
		simLogger.Println("reset failed:", err)
		return
	}
	simLogger.Println("simulation reset")
	sim.publish(sim.clock())
}

// Mode returns the current offered-load regime
func (sim *Simulation) Mode() Mode {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.mode
}

// Running reports whether traffic is being generated
func (sim *Simulation) Running() bool {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.running
}

// Tick advances the simulation to the time given by its clock
func (sim *Simulation) Tick() *Snapshot {
	return sim.TickAt(sim.clock())
}

// TickAt advances the simulation to time 'now' and returns the snapshot it published.
// Each link advances by the time elapsed since its own last update; a link whose clock
// would not move forward is left as it is.
func (sim *Simulation) TickAt(now time.Time) *Snapshot {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	topo := sim.topo
	for _, link := range topo.Links {
		link.clearOffered()
	}

	if sim.running {
		sim.gen.generate(topo, sim.mode)
	}

	// link physics run whether or not traffic is being generated
	for idx, link := range topo.Links {
		if !link.update(now) {
			continue
		}
		sim.analyses[idx] = sim.analyzer.analyze(link, sim.mode, now)
	}
	sim.alerts.truncate()

	sim.ticks += 1
	return sim.publish(now)
}

// Snapshot returns the most recently published snapshot
func (sim *Simulation) Snapshot() *Snapshot {
	return sim.published.Load()
}

// TopologyName returns the name of the network being simulated
func (sim *Simulation) TopologyName() string {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.topo.Name
}

// publish builds a snapshot of the current state and makes it visible to readers.
// The caller holds the lock.
func (sim *Simulation) publish(now time.Time) *Snapshot {
	topo := sim.topo
	snap := &Snapshot{
		Tick:        sim.ticks,
		Time:        now,
		Mode:        sim.mode,
		Running:     sim.running,
		Nodes:       slices.Clone(topo.Nodes),
		Links:       make([]LinkState, 0, len(topo.Links)),
		Alerts:      sim.alerts.recent(recentAlerts),
		GlobalStats: globalStats(topo.Links, len(topo.Nodes)),
	}
	for idx, link := range topo.Links {
		snap.Links = append(snap.Links, linkState(link, sim.analyses[idx]))
	}
	sim.published.Store(snap)
	return snap
}
