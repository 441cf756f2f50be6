package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iti/qosnet"
)

var driverLog = log.New(os.Stdout, "QOSNET INFO: ", log.Ltime)

func main() {
	cfgFile := flag.String("config", "", "configuration file (yaml, json or env)")
	flag.Parse()

	cfg, err := qosnet.LoadConfig(*cfgFile)
	if err != nil {
		log.Fatal(err)
	}

	td, err := cfg.LoadTopology()
	if err != nil {
		log.Fatal(err)
	}

	sim, err := qosnet.NewSimulation(qosnet.Options{Topo: td, AlertLogPerSec: cfg.AlertLogPerSec})
	if err != nil {
		log.Fatal(err)
	}
	driverLog.Printf("topology %s: %d nodes, %d links\n", td.Name, len(td.Nodes), 2*len(td.Cables))

	if cfg.ExperimentTicks > 0 {
		runExperiment(sim, cfg)
	} else {
		runRealTime(sim, cfg)
	}

	if cfg.SnapshotFile != "" {
		if err := sim.Snapshot().WriteToFile(cfg.SnapshotFile); err != nil {
			driverLog.Println(err)
		}
	}
}

// runExperiment drives the simulation through NORMAL, CONGESTED and DDOS phases in virtual time
func runExperiment(sim *qosnet.Simulation, cfg *qosnet.Config) {
	tm := qosnet.CreateTraceManager("phases", cfg.TraceFile != "")
	exp := qosnet.Experiment{Phases: qosnet.DefaultPhases(cfg.ExperimentTicks), Interval: cfg.TickInterval}

	ticks, err := qosnet.RunExperiment(sim, exp, tm)
	if err != nil {
		log.Fatal(err)
	}
	driverLog.Printf("experiment ran %d ticks\n", ticks)

	if written, err := tm.WriteToFile(cfg.TraceFile); err != nil {
		driverLog.Println(err)
	} else if written {
		driverLog.Println("trace written to", cfg.TraceFile)
	}
}

// runRealTime ticks the simulation on the wall clock until interrupted
func runRealTime(sim *qosnet.Simulation, cfg *qosnet.Config) {
	sim.SetMode(cfg.Mode)
	sim.SetRunning(cfg.Autostart)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()
	status := time.NewTicker(cfg.StatusInterval)
	defer status.Stop()

	for {
		select {
		case <-ticker.C:
			sim.Tick()
		case <-status.C:
			snap := sim.Snapshot()
			driverLog.Printf("tick %d mode %s throughput %.1f Mbps entropy %.2f alerts %d\n",
				snap.Tick, snap.Mode, snap.GlobalStats.TotalThroughput,
				snap.GlobalStats.AvgSystemEntropy, len(snap.Alerts))
		case <-stop:
			driverLog.Println("stopping")
			return
		}
	}
}
