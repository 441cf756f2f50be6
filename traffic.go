package qosnet

// traffic.go synthesizes, every tick, the flows offered to every link of a topology.
// What is offered depends on the simulation mode:
//   - NORMAL: small, diverse baseline traffic
//   - CONGESTED: the baseline scaled up, plus heavy legitimate surges on a few bottlenecks
//   - DDOS: the baseline, reflection noise everywhere, and a multi-vector attack
//     converging on the hub along shortest paths
// Independent of mode, a random mesh flow sometimes crosses the network.

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMode is wrapped by ParseMode when given a value that is not a mode name
var ErrUnknownMode = errors.New("unknown simulation mode")

// Mode is the offered-load regime of the simulation
type Mode int

const (
	Normal Mode = iota
	Congested
	DDoS
)

var modeToStr map[Mode]string = map[Mode]string{Normal: "NORMAL", Congested: "CONGESTED", DDoS: "DDOS"}

func (m Mode) String() string {
	str, present := modeToStr[m]
	if !present {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return str
}

// ParseMode validates a mode name; case and surrounding space are ignored
func ParseMode(name string) (Mode, error) {
	want := strings.ToUpper(strings.TrimSpace(name))
	for mode, str := range modeToStr {
		if str == want {
			return mode, nil
		}
	}
	return Normal, fmt.Errorf("%w: %q", ErrUnknownMode, name)
}

// MarshalText lets a Mode appear by name in json and yaml
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText reads a Mode written by MarshalText
func (m *Mode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// a rateRange is the interval a flow's rate (in Mbps) is drawn from
type rateRange struct {
	lo, hi float64
}

var (
	iotRate  = rateRange{15, 25}
	dnsRate  = rateRange{10, 20}
	httpRate = rateRange{15, 30}
	ntpRate  = rateRange{5, 15}

	dicomRate = rateRange{40, 120}
	voipRate  = rateRange{20, 60}

	congestionFactor = rateRange{1.2, 1.8}
	surgeRate        = rateRange{300, 600}

	reflectionRate = rateRange{100, 300}
	attackRate     = rateRange{3500, 6000}

	meshRate = rateRange{20, 60}

	tickJitter = rateRange{0.9, 1.1}
)

const (
	ntpProb        = 0.5
	meshProb       = 0.6
	numBottlenecks = 4
)

// trafficGenerator draws the offered flows.  All of its randomness comes from one stream.
type trafficGenerator struct {
	rng sampler
}

func createTrafficGenerator(rng sampler) *trafficGenerator {
	return &trafficGenerator{rng: rng}
}

func (tg *trafficGenerator) draw(rr rateRange) float64 {
	return uniformRV(tg.rng, rr.lo, rr.hi)
}

// generate offers this tick's flows to the links of topo.  The links' offered sets
// are expected to have been cleared.
func (tg *trafficGenerator) generate(topo *Topology, mode Mode) {
	// one jitter multiplier per tick, applied to the NORMAL and DDOS baseline
	jitter := tg.draw(tickJitter)

	switch mode {
	case Congested:
		tg.congested(topo)
	case DDoS:
		tg.baseline(topo, jitter, false)
		tg.ddos(topo)
	default:
		tg.baseline(topo, jitter, true)
	}

	tg.mesh(topo, mode)
}

// baseline offers small IOT, DNS and HTTP flows on every link, and NTP half the time when withNTP is set
func (tg *trafficGenerator) baseline(topo *Topology, scale float64, withNTP bool) {
	for _, link := range topo.Links {
		link.offer(IOT, tg.draw(iotRate)*scale)
		link.offer(DNS, tg.draw(dnsRate)*scale)
		link.offer(HTTP, tg.draw(httpRate)*scale)
		if withNTP && bernoulliRV(tg.rng, ntpProb) {
			link.offer(NTP, tg.draw(ntpRate)*scale)
		}
	}
}

// congested scales the legitimate mix on every link by one shared factor, and
// surges a few randomly chosen bottleneck links
func (tg *trafficGenerator) congested(topo *Topology) {
	factor := tg.draw(congestionFactor)
	for _, link := range topo.Links {
		link.offer(IOT, tg.draw(iotRate)*factor)
		link.offer(DNS, tg.draw(dnsRate)*factor)
		link.offer(HTTP, tg.draw(httpRate)*factor)
		link.offer(DICOM, tg.draw(dicomRate)*factor)
		link.offer(VOIP, tg.draw(voipRate)*factor)
	}

	for _, idx := range distinctIndices(tg.rng, len(topo.Links), numBottlenecks) {
		topo.Links[idx].offer(SURGE, tg.draw(surgeRate))
	}
}

// ddos adds reflection noise to every link, and a large attack flow on every directed
// link of the shortest path from each attacker to the hub
func (tg *trafficGenerator) ddos(topo *Topology) {
	for _, link := range topo.Links {
		link.offer(REFLECTION, tg.draw(reflectionRate))
	}

	if topo.hub < 0 {
		return
	}
	for _, attacker := range topo.attackers {
		links, found := topo.pathLinks(attacker, topo.hub)
		if !found {
			continue
		}
		rate := tg.draw(attackRate)
		for _, link := range links {
			link.offer(DDOS, rate)
		}
	}
}

// mesh routes, with probability meshProb, one HTTP flow between two distinct random nodes
func (tg *trafficGenerator) mesh(topo *Topology, mode Mode) {
	if !bernoulliRV(tg.rng, meshProb) {
		return
	}
	numNodes := len(topo.Nodes)
	if numNodes < 2 {
		return
	}

	src := indexRV(tg.rng, numNodes)
	dst := indexRV(tg.rng, numNodes-1)
	if dst >= src {
		dst += 1
	}

	rate := tg.draw(meshRate)
	if mode == Congested {
		rate *= 2
	}

	links, found := topo.pathLinks(src, dst)
	if !found {
		return
	}
	for _, link := range links {
		link.offer(HTTP, rate)
	}
}
