package qosnet

// analyzer.go computes the Congestion Severity Score and the load Z-score of each
// link after its update, raising alerts when the simulation is not in NORMAL mode

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	// weights of the Congestion Severity Score; loss dominates
	cssDelayWeight   = 0.5
	cssLossWeight    = 20.0
	cssEntropyWeight = 2.0

	// smoothed RTT beyond this multiple of the base latency adds no further delay score
	maxDelayFactor = 3.0

	cssThreshold = 4.0
	zThreshold   = 3.0

	// the Z-score is computed once the history holds more samples than this
	minZSamples = 10
)

// Analysis holds the scores computed for one link in one tick
type Analysis struct {
	CSS float64

	// ZScore is meaningful only when HasZ is true
	ZScore float64
	HasZ   bool
}

// congestionScore combines the delay, loss and entropy deficit of a link
func congestionScore(link *Link) float64 {
	delay := 0.0
	if link.BaseLatency > 0 {
		delay = math.Min(maxDelayFactor, link.ewmaRTT/link.BaseLatency)
	}
	loss := link.packetLoss * 10
	entropyDeficit := 1.0 - link.entropy

	return cssDelayWeight*delay + cssLossWeight*loss + cssEntropyWeight*entropyDeficit
}

// zScore returns the distance, in (population) standard deviations, of current from the
// mean of history.  The flag is false when the history is too short or has no spread.
func zScore(history []float64, current float64) (float64, bool) {
	if len(history) <= minZSamples {
		return 0.0, false
	}
	mean := stat.Mean(history, nil)
	stdDev := math.Sqrt(stat.PopVariance(history, nil))
	if !(stdDev > 0) {
		return 0.0, false
	}
	return (current - mean) / stdDev, true
}

// congestionAnalyzer scores links and raises alerts on the alert log
type congestionAnalyzer struct {
	alerts *alertLog
}

func createCongestionAnalyzer(alerts *alertLog) *congestionAnalyzer {
	return &congestionAnalyzer{alerts: alerts}
}

// analyze scores the link.  Alerts are raised only when mode is not NORMAL.
func (ca *congestionAnalyzer) analyze(link *Link, mode Mode, now time.Time) Analysis {
	var an Analysis
	an.CSS = congestionScore(link)
	an.ZScore, an.HasZ = zScore(link.loadHistory, link.currentLoad)

	if mode == Normal {
		return an
	}

	if an.CSS > cssThreshold {
		ca.alerts.add(now, fmt.Sprintf("Critical Congestion (CSS=%.1f) on %s", an.CSS, link.Name()), Critical)
	}
	if an.HasZ && an.ZScore > zThreshold {
		ca.alerts.add(now, fmt.Sprintf("Anomaly (Z-Score=%.1f) on %s", an.ZScore, link.Name()), Warning)
	}
	return an
}
