package qosnet

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"
)

func TestCongestionScore(t *testing.T) {
	link := testLink(1000, 2)

	// idle link: delay factor 1, no loss, full entropy
	if css := congestionScore(link); css != 0.5 {
		t.Errorf("Expected CSS 0.5, got %g", css)
	}

	link.ewmaRTT = 20
	link.packetLoss = 0.1
	link.entropy = 0.25
	want := 0.5*3.0 + 20.0*1.0 + 2.0*0.75
	if css := congestionScore(link); math.Abs(css-want) > 1e-12 {
		t.Errorf("Expected CSS %g, got %g", want, css)
	}
}

func TestZScore(t *testing.T) {
	short := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if _, ok := zScore(short, 100); ok {
		t.Error("Expected no Z-score from 10 samples")
	}

	flat := []float64{5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5}
	if _, ok := zScore(flat, 5); ok {
		t.Error("Expected no Z-score without spread")
	}

	// mean 10, population standard deviation 2
	history := []float64{8, 12, 8, 12, 8, 12, 8, 12, 8, 12, 8, 12}
	z, ok := zScore(history, 16)
	if !ok {
		t.Fatal("Expected a Z-score")
	}
	if math.Abs(z-3.0) > 1e-12 {
		t.Errorf("Expected Z-score 3, got %g", z)
	}
}

func TestAnalyzeRaisesNoAlertsInNormalMode(t *testing.T) {
	alerts := createAlertLog(0)
	ca := createCongestionAnalyzer(alerts)

	link := testLink(1000, 2)
	link.packetLoss = 0.5
	link.entropy = 0
	link.loadHistory = []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 2, 1000}
	link.currentLoad = 1000

	an := ca.analyze(link, Normal, t0)
	if an.CSS <= cssThreshold {
		t.Fatalf("Expected a CSS beyond the threshold, got %g", an.CSS)
	}
	if alerts.len() != 0 {
		t.Errorf("Expected no alerts in NORMAL mode, got %d", alerts.len())
	}

	ca.analyze(link, DDoS, t0)
	recent := alerts.recent(recentAlerts)
	if len(recent) != 2 {
		t.Fatalf("Expected a CRITICAL and a WARNING alert, got %v", recent)
	}
	if recent[0].Level != Critical || !strings.HasPrefix(recent[0].Msg, "Critical Congestion (CSS=") {
		t.Errorf("Expected a congestion alert first, got %+v", recent[0])
	}
	if recent[1].Level != Warning || !strings.HasSuffix(recent[1].Msg, "on A->B") {
		t.Errorf("Expected an anomaly alert on A->B, got %+v", recent[1])
	}
	if recent[0].Time != "12:00:00" {
		t.Errorf("Expected time 12:00:00, got %s", recent[0].Time)
	}
}

func TestAlertLogDedupe(t *testing.T) {
	al := createAlertLog(0)

	if !al.add(t0, "Anomaly on A->B", Warning) {
		t.Fatal("Expected the first alert to be recorded")
	}
	if al.add(t0.Add(300*time.Millisecond), "Anomaly on A->B", Warning) {
		t.Error("Expected a repeat within the same second to be suppressed")
	}
	if !al.add(t0.Add(300*time.Millisecond), "Anomaly on B->A", Warning) {
		t.Error("Expected a different message to be recorded")
	}
	if !al.add(t0.Add(1300*time.Millisecond), "Anomaly on B->A", Warning) {
		t.Error("Expected a repeat in a later second to be recorded")
	}
	if al.len() != 3 {
		t.Errorf("Expected 3 alerts, got %d", al.len())
	}
}

func TestAlertLogRetention(t *testing.T) {
	al := createAlertLog(0)
	for idx := 0; idx < 75; idx++ {
		al.add(t0, fmt.Sprintf("alert %d", idx), Critical)
		al.truncate()
	}

	if al.len() != maxAlerts {
		t.Errorf("Expected %d alerts retained, got %d", maxAlerts, al.len())
	}

	recent := al.recent(recentAlerts)
	if len(recent) != recentAlerts {
		t.Fatalf("Expected %d recent alerts, got %d", recentAlerts, len(recent))
	}
	if recent[0].Msg != "alert 65" || recent[9].Msg != "alert 74" {
		t.Errorf("Expected alerts 65 through 74, got %s through %s", recent[0].Msg, recent[9].Msg)
	}

	// the caller's copy is independent of the log
	recent[0].Msg = "changed"
	if al.recent(recentAlerts)[0].Msg != "alert 65" {
		t.Error("Expected recent to return a copy")
	}
}
