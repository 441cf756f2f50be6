package qosnet

// snapshot.go holds the read-only document a Simulation publishes after every tick
// and every control operation.  Field names follow the conventions of the dashboards
// that poll the engine.

import (
	"time"
)

// QoSState is the admission-control breakdown of one link
type QoSState struct {
	GoldDrops    int64 `json:"gold_drops" yaml:"gold_drops"`
	GoldServed   int64 `json:"gold_served" yaml:"gold_served"`
	SilverDrops  int64 `json:"silver_drops" yaml:"silver_drops"`
	SilverServed int64 `json:"silver_served" yaml:"silver_served"`
	BronzeDrops  int64 `json:"bronze_drops" yaml:"bronze_drops"`
	BronzeServed int64 `json:"bronze_served" yaml:"bronze_served"`

	BufferOccupancy float64 `json:"buffer_occupancy" yaml:"buffer_occupancy"`
	ChokeActive     bool    `json:"choke_active" yaml:"choke_active"`

	// percentages of the class's flow units dropped over the link's lifetime
	GoldLossPct   float64 `json:"gold_loss_pct" yaml:"gold_loss_pct"`
	BronzeLossPct float64 `json:"bronze_loss_pct" yaml:"bronze_loss_pct"`
}

// LinkState gives the metrics of one directed link.  Load is the offered rate, so that
// an attack remains visible while it is being dropped; Utilization is Load/Capacity.
// Latency is the smoothed RTT and RTT the instantaneous one of the most recent update.
type LinkState struct {
	Source      string  `json:"source" yaml:"source"`
	Target      string  `json:"target" yaml:"target"`
	Capacity    float64 `json:"capacity" yaml:"capacity"`
	Load        float64 `json:"load" yaml:"load"`
	Served      float64 `json:"served" yaml:"served"`
	Utilization float64 `json:"utilization" yaml:"utilization"`
	Latency     float64 `json:"latency" yaml:"latency"`
	RTT         float64 `json:"rtt" yaml:"rtt"`
	Jitter      float64 `json:"jitter" yaml:"jitter"`
	PacketLoss  float64 `json:"packet_loss" yaml:"packet_loss"`
	Entropy     float64 `json:"entropy" yaml:"entropy"`
	Status      string  `json:"status" yaml:"status"`
	CSS         float64 `json:"css" yaml:"css"`

	TokenFill    float64 `json:"token_fill" yaml:"token_fill"`
	TokenCeiling float64 `json:"token_ceiling" yaml:"token_ceiling"`

	QoS QoSState `json:"qos" yaml:"qos"`

	// offered load of the most recent updates, oldest first
	LoadHistory []float64 `json:"load_history" yaml:"load_history"`
}

// GlobalStats summarizes the whole network
type GlobalStats struct {
	// sum of offered load over directed links; each cable counts once per direction
	TotalThroughput float64 `json:"total_throughput_mbps" yaml:"total_throughput_mbps"`

	// load-weighted mean of link entropy, 1 when nothing is offered
	AvgSystemEntropy float64 `json:"avg_system_entropy" yaml:"avg_system_entropy"`

	ActiveNodes int `json:"active_nodes" yaml:"active_nodes"`
}

// Snapshot is a consistent view of the simulation between ticks.  Published snapshots
// are shared between readers and must not be modified.
type Snapshot struct {
	Tick    int64     `json:"tick" yaml:"tick"`
	Time    time.Time `json:"timestamp" yaml:"timestamp"`
	Mode    Mode      `json:"mode" yaml:"mode"`
	Running bool      `json:"running" yaml:"running"`

	Nodes       []NodeDesc  `json:"nodes" yaml:"nodes"`
	Links       []LinkState `json:"links" yaml:"links"`
	Alerts      []Alert     `json:"alerts" yaml:"alerts"`
	GlobalStats GlobalStats `json:"global_stats" yaml:"global_stats"`
}

// WriteToFile stores the snapshot to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (snap *Snapshot) WriteToFile(filename string) error {
	return writeDescFile(filename, snap)
}

// linkStatus classifies a link by its loss and offered load
func linkStatus(link *Link) string {
	if link.packetLoss > 0.05 {
		return Critical
	}
	if link.currentLoad > link.Capacity*0.8 {
		return Warning
	}
	return "NORMAL"
}

// linkState gathers the metrics of link, with the analysis computed for it this tick
func linkState(link *Link, an Analysis) LinkState {
	utilization := 0.0
	if link.Capacity > 0 {
		utilization = link.currentLoad / link.Capacity
	}

	qos := link.qos
	return LinkState{
		Source:       link.Source,
		Target:       link.Target,
		Capacity:     link.Capacity,
		Load:         link.currentLoad,
		Served:       link.servedLoad,
		Utilization:  utilization,
		Latency:      link.ewmaRTT,
		RTT:          link.currentRTT,
		Jitter:       link.jitter,
		PacketLoss:   link.packetLoss,
		Entropy:      link.entropy,
		Status:       linkStatus(link),
		CSS:          an.CSS,
		TokenFill:    link.tokens,
		TokenCeiling: link.bucketCapacity,
		QoS: QoSState{
			GoldDrops:       qos.Dropped[Gold],
			GoldServed:      qos.Served[Gold],
			SilverDrops:     qos.Dropped[Silver],
			SilverServed:    qos.Served[Silver],
			BronzeDrops:     qos.Dropped[Bronze],
			BronzeServed:    qos.Served[Bronze],
			BufferOccupancy: link.bufferOccupancy,
			ChokeActive:     link.choke,
			GoldLossPct:     qos.LossPct(Gold),
			BronzeLossPct:   qos.LossPct(Bronze),
		},
	}
}

// globalStats totals offered load over links and weights each link's entropy by its load
func globalStats(links []*Link, numNodes int) GlobalStats {
	total := 0.0
	weighted := 0.0
	for _, link := range links {
		total += link.currentLoad
		weighted += link.currentLoad * link.entropy
	}

	avgEntropy := 1.0
	if total > 0 {
		avgEntropy = clamp01(weighted / total)
	}
	return GlobalStats{TotalThroughput: total, AvgSystemEntropy: avgEntropy, ActiveNodes: numNodes}
}
