package qosnet

// alert.go holds the capped log of alerts raised by the congestion analyzer

import (
	"log"
	"os"
	"time"

	"golang.org/x/exp/slices"
	"golang.org/x/time/rate"
)

const (
	Warning  = "WARNING"
	Critical = "CRITICAL"

	// number of alerts retained, and the number exposed in a snapshot
	maxAlerts    = 50
	recentAlerts = 10

	alertTimeFormat = "15:04:05"
)

var alertLogger = log.New(os.Stdout, "QOSNET ALERT: ", log.Ltime)

// Alert is one raised condition
type Alert struct {
	Time  string `json:"time" yaml:"time"`
	Msg   string `json:"msg" yaml:"msg"`
	Level string `json:"level" yaml:"level"`

	// whole second the alert was raised in, used to suppress duplicates
	second int64
}

// alertLog keeps the most recent alerts.  Alerts are echoed to the log,
// at a rate bounded by the limiter.
type alertLog struct {
	alerts  []Alert
	limiter *rate.Limiter
}

// createAlertLog is a constructor; perSec bounds how many alerts per second reach the
// log output (0 silences it).  Retention is not affected by the bound.
func createAlertLog(perSec float64) *alertLog {
	al := new(alertLog)
	al.alerts = make([]Alert, 0, maxAlerts+1)
	burst := int(perSec)
	if burst < 1 {
		burst = 1
	}
	al.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	return al
}

// add records an alert raised at 'now', unless it repeats the most recent alert
// within the same second.  The return is true if the alert was recorded.
func (al *alertLog) add(now time.Time, msg, level string) bool {
	second := now.Unix()
	if n := len(al.alerts); n > 0 {
		last := al.alerts[n-1]
		if last.Msg == msg && last.second == second {
			return false
		}
	}
	al.alerts = append(al.alerts, Alert{Time: now.Format(alertTimeFormat), Msg: msg, Level: level, second: second})

	if al.limiter.Limit() > 0 && al.limiter.AllowN(now, 1) {
		alertLogger.Println(level, msg)
	}
	return true
}

// truncate drops the oldest alerts beyond the retention cap
func (al *alertLog) truncate() {
	if len(al.alerts) > maxAlerts {
		al.alerts = slices.Clone(al.alerts[len(al.alerts)-maxAlerts:])
	}
}

// recent returns a copy of (at most) the last n alerts
func (al *alertLog) recent(n int) []Alert {
	start := len(al.alerts) - n
	if start < 0 {
		start = 0
	}
	return slices.Clone(al.alerts[start:])
}

func (al *alertLog) len() int {
	return len(al.alerts)
}
