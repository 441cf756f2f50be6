package qosnet

import (
	"github.com/iti/evt/vrtime"
)

// TickTrace summarizes one tick of an experiment
type TickTrace struct {
	Tick    int64   `json:"tick" yaml:"tick"`
	Seconds float64 `json:"seconds" yaml:"seconds"`
	Mode    Mode    `json:"mode" yaml:"mode"`

	Throughput float64 `json:"throughput" yaml:"throughput"`
	AvgEntropy float64 `json:"avgentropy" yaml:"avgentropy"`

	// largest packet loss over all links
	MaxLoss float64 `json:"maxloss" yaml:"maxloss"`

	// Gold flow units served, summed over links
	GoldServed int64 `json:"goldserved" yaml:"goldserved"`

	Alerts int `json:"alerts" yaml:"alerts"`
}

// TraceManager gathers the per-tick summaries of an experiment
type TraceManager struct {
	// experiment uses trace
	InUse bool `json:"inuse" yaml:"inuse"`

	// name of experiment
	ExpName string `json:"expname" yaml:"expname"`

	// name of the topology the experiment ran on
	TopoName string `json:"toponame" yaml:"toponame"`

	Traces []TickTrace `json:"traces" yaml:"traces"`
}

// CreateTraceManager is a constructor.  It saves the name of the experiment
// and a flag indicating whether the trace manager is active.  By testing this
// flag we can inhibit the activity of gathering a trace when we don't want it,
// while embedding calls to its methods everywhere we need them when it is
func CreateTraceManager(expName string, active bool) *TraceManager {
	tm := new(TraceManager)
	tm.InUse = active
	tm.ExpName = expName
	tm.Traces = make([]TickTrace, 0)
	return tm
}

// Active tells the caller whether the Trace Manager is actively being used
func (tm *TraceManager) Active() bool {
	return tm != nil && tm.InUse
}

// AddTick summarizes the snapshot taken at virtual time vrt, and stores it
func (tm *TraceManager) AddTick(vrt vrtime.Time, snap *Snapshot) {
	if !tm.Active() {
		return
	}

	trc := TickTrace{Tick: snap.Tick, Seconds: vrt.Seconds(), Mode: snap.Mode,
		Throughput: snap.GlobalStats.TotalThroughput, AvgEntropy: snap.GlobalStats.AvgSystemEntropy,
		Alerts: len(snap.Alerts)}

	for _, ls := range snap.Links {
		if ls.PacketLoss > trc.MaxLoss {
			trc.MaxLoss = ls.PacketLoss
		}
		trc.GoldServed += ls.QoS.GoldServed
	}
	tm.Traces = append(tm.Traces, trc)
}

// WriteToFile stores the traces to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
// The return is false (with no error) when the trace manager is not in use.
func (tm *TraceManager) WriteToFile(filename string) (bool, error) {
	if !tm.Active() {
		return false, nil
	}
	if err := writeDescFile(filename, tm); err != nil {
		return false, err
	}
	return true, nil
}
