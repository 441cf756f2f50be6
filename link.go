package qosnet

// link.go holds the state of one directed link and the per-tick update that
// polices, schedules and measures the traffic offered to it.

import (
	"math"
	"time"

	"golang.org/x/exp/slices"
)

const (
	// smoothing constant of the RTT moving average
	ewmaAlpha = 0.125

	// the token bucket holds at most this fraction of a second's worth of capacity
	burstFraction = 0.5

	// buffer occupancy beyond which only Gold traffic is admitted
	chokeThreshold = 0.7

	// occupancy below which a single-kind link is treated as idle rather than anomalous
	idleOccupancy = 0.1

	// number of offered load samples kept for the Z-score
	historyLen = 50

	// utilization beyond which queueing delay builds
	queueKnee = 0.6

	// utilization beyond which jitter jumps to its congested range
	jitterKnee = 0.8

	// tolerance when fitting a flow into the remaining budget
	admitSlack = 1e-9
)

// QoSCounters counts flow units served and dropped, per priority class
type QoSCounters struct {
	Served  [3]int64
	Dropped [3]int64
}

// add folds another set of counters into qc
func (qc *QoSCounters) add(other QoSCounters) {
	for class := range qc.Served {
		qc.Served[class] += other.Served[class]
		qc.Dropped[class] += other.Dropped[class]
	}
}

// LossPct returns the percentage of the class's flow units that were dropped
func (qc *QoSCounters) LossPct(class Class) float64 {
	total := qc.Served[class] + qc.Dropped[class]
	if total == 0 {
		return 0.0
	}
	return 100.0 * float64(qc.Dropped[class]) / float64(total)
}

// Link is one direction of a cable
type Link struct {
	Source string
	Target string

	// capacity in Mbps
	Capacity float64

	// base latency in ms
	BaseLatency float64

	// token bucket
	tokens         float64
	bucketCapacity float64

	// latency, in ms
	ewmaRTT    float64
	currentRTT float64
	jitter     float64

	// lifetime counters, and those of the most recent update
	qos     QoSCounters
	lastQoS QoSCounters

	bufferOccupancy float64
	choke           bool
	entropy         float64
	packetLoss      float64

	// offered and served rates of the most recent update, in Mbps
	currentLoad float64
	servedLoad  float64

	loadHistory []float64

	// flows offered during the current tick
	offered []Flow

	lastUpdate time.Time
	rng        sampler
}

// createLink is a constructor.  The link's clock starts at 'now', and its
// jitter samples are drawn from rng.
func createLink(src, dst string, capacity, baseLatency float64, now time.Time, rng sampler) *Link {
	link := new(Link)
	link.Source = src
	link.Target = dst
	link.Capacity = capacity
	link.BaseLatency = baseLatency

	link.bucketCapacity = capacity * burstFraction
	link.tokens = link.bucketCapacity

	link.ewmaRTT = baseLatency
	link.currentRTT = baseLatency

	link.entropy = 1.0
	link.loadHistory = make([]float64, 0, historyLen)
	link.offered = make([]Flow, 0)
	link.lastUpdate = now
	link.rng = rng
	return link
}

// Name returns the "src->dst" identity of the link
func (link *Link) Name() string {
	return link.Source + "->" + link.Target
}

// clearOffered empties the set of flows offered this tick
func (link *Link) clearOffered() {
	link.offered = link.offered[:0]
}

// offer adds a flow to the set offered this tick.  Non-positive rates carry no traffic and are ignored.
func (link *Link) offer(kind TrafficKind, rate float64) {
	if !(rate > 0) {
		return
	}
	link.offered = append(link.offered, Flow{Kind: kind, Rate: rate})
}

// Offered returns a copy of the flows offered this tick
func (link *Link) Offered() []Flow {
	return slices.Clone(link.offered)
}

// update advances the link's state to time 'now'.  It returns false, having changed
// nothing, when the clock has not moved forward since the last update.
func (link *Link) update(now time.Time) bool {
	dt := now.Sub(link.lastUpdate).Seconds()
	if dt <= 0 {
		return false
	}
	link.lastUpdate = now
	link.advance(dt)
	return true
}

// advance applies one tick of dt seconds to the link
func (link *Link) advance(dt float64) {
	if dt <= 0 {
		return
	}

	offered := 0.0
	for _, flow := range link.offered {
		offered += flow.Rate
	}

	switch {
	case link.Capacity > 0:
		link.bufferOccupancy = math.Min(1.0, offered/link.Capacity)
	case offered > 0:
		link.bufferOccupancy = 1.0
	default:
		link.bufferOccupancy = 0.0
	}
	link.choke = link.bufferOccupancy > chokeThreshold

	// strict priority, Gold first, arrival order kept within a class
	order := slices.Clone(link.offered)
	slices.SortStableFunc(order, func(a, b Flow) int {
		return int(b.Class()) - int(a.Class())
	})

	adm := admit(order, link.Capacity*dt, dt, link.choke)
	link.lastQoS = adm.counters
	link.qos.add(adm.counters)

	// tokens accrue at capacity (rate * time = volume) and are spent by the volume served
	link.tokens = math.Max(0.0, math.Min(link.bucketCapacity, link.tokens+link.Capacity*dt-adm.volume))

	link.servedLoad = adm.rate
	link.currentLoad = offered

	link.loadHistory = append(link.loadHistory, link.currentLoad)
	if len(link.loadHistory) > historyLen {
		link.loadHistory = link.loadHistory[len(link.loadHistory)-historyLen:]
	}

	// the dropped share of the offered rate, i.e., 1 - served/offered
	if offered > 0 {
		link.packetLoss = clamp01(adm.dropped / offered)
	} else {
		link.packetLoss = 0.0
	}

	link.updateLatency()
	link.entropy = flowEntropy(link.offered, link.bufferOccupancy)
}

// admission is the outcome of one tick's admission control
type admission struct {
	// volume admitted, in Mb
	volume float64

	// rates served and dropped, in Mbps
	rate    float64
	dropped float64

	counters QoSCounters
}

// admit walks the flows in the order given, consuming a volume budget.  While choked
// only Gold flows are considered.  A Gold flow that does not fit may reclaim the volume
// of Bronze flows admitted earlier in the walk, most recent first, but only when doing
// so makes it fit; preempted flows move from served to dropped.
func admit(flows []Flow, budget, dt float64, choke bool) admission {
	var adm admission

	// Bronze flows served so far, in the order admitted
	bronze := make([]Flow, 0)
	reclaimable := 0.0

	for _, flow := range flows {
		class := flow.Class()
		volume := flow.Rate * dt

		if choke && class != Gold {
			adm.drop(flow)
			continue
		}

		if volume <= budget+admitSlack {
			budget -= volume
			adm.serve(flow, volume)
			if class == Bronze {
				bronze = append(bronze, flow)
				reclaimable += volume
			}
			continue
		}

		if class == Gold && len(bronze) > 0 && volume <= budget+reclaimable+admitSlack {
			for volume > budget+admitSlack && len(bronze) > 0 {
				var victim Flow
				victim, bronze = bronze[len(bronze)-1], bronze[:len(bronze)-1]
				victimVolume := victim.Rate * dt
				reclaimable -= victimVolume
				budget += victimVolume
				adm.preempt(victim, victimVolume)
			}
			budget -= volume
			adm.serve(flow, volume)
			continue
		}

		adm.drop(flow)
	}

	adm.volume = math.Max(0.0, adm.volume)
	adm.rate = math.Max(0.0, adm.rate)
	return adm
}

func (adm *admission) serve(flow Flow, volume float64) {
	adm.volume += volume
	adm.rate += flow.Rate
	adm.counters.Served[flow.Class()] += 1
}

func (adm *admission) drop(flow Flow) {
	adm.dropped += flow.Rate
	adm.counters.Dropped[flow.Class()] += 1
}

// preempt moves a flow served earlier in the walk to the dropped side
func (adm *admission) preempt(flow Flow, volume float64) {
	adm.volume -= volume
	adm.rate -= flow.Rate
	adm.counters.Served[flow.Class()] -= 1
	adm.drop(flow)
}

// updateLatency moves the smoothed RTT toward the instantaneous RTT implied by the
// served utilization, with jitter added
func (link *Link) updateLatency() {
	utilization := 0.0
	if link.Capacity > 0 {
		utilization = link.servedLoad / link.Capacity
	}

	instantRTT := link.BaseLatency
	if utilization > queueKnee {
		instantRTT = link.BaseLatency * (1 + 15*(utilization-queueKnee))
	}

	if utilization < jitterKnee {
		link.jitter = uniformRV(link.rng, 0, 2)
	} else {
		link.jitter = uniformRV(link.rng, 5, 25)
	}
	instantRTT += link.jitter

	link.ewmaRTT = (1-ewmaAlpha)*link.ewmaRTT + ewmaAlpha*instantRTT
	link.currentRTT = instantRTT
}

// flowEntropy returns the volume-weighted Shannon entropy of the flows' kinds, normalized
// by the maximum entropy for the number of kinds present, so that 1 is maximal diversity.
// A single kind has entropy 0, unless the link is nearly idle. No traffic has entropy 1.
func flowEntropy(flows []Flow, occupancy float64) float64 {
	// one accumulator per kind, plus one for kinds outside the enumeration
	var volumes [numKinds + 1]float64
	total := 0.0
	for _, flow := range flows {
		kdx := int(flow.Kind)
		if kdx < 0 || kdx >= numKinds {
			kdx = numKinds
		}
		volumes[kdx] += flow.Rate
		total += flow.Rate
	}
	if !(total > 0) {
		return 1.0
	}

	present := 0
	entropy := 0.0
	for _, volume := range volumes {
		if volume > 0 {
			present += 1
			p := volume / total
			entropy -= p * math.Log2(p)
		}
	}

	if present < 2 {
		if occupancy < idleOccupancy {
			return 1.0
		}
		return 0.0
	}
	return clamp01(entropy / math.Log2(float64(present)))
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}

// Tokens returns the current fill of the token bucket and its ceiling
func (link *Link) Tokens() (float64, float64) {
	return link.tokens, link.bucketCapacity
}

// LoadHistory returns a copy of the rolling history of offered load
func (link *Link) LoadHistory() []float64 {
	return slices.Clone(link.loadHistory)
}
