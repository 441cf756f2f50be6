package qosnet

// flow.go holds the description of the traffic offered to a link during one tick.
// Traffic is modeled as continuous rate flows, each tagged with the kind of
// application that produced it.  The kind determines the priority class the
// flow is admitted under.

// TrafficKind identifies the application (or attack) that generated a flow
type TrafficKind int

const (
	IOT TrafficKind = iota // constant low bandwidth sensors
	DNS
	NTP
	HTTP
	VOIP  // high priority, low bandwidth, jitter sensitive
	EMR   // patient records, transactional
	DICOM // imaging, bulky and bursty
	GUEST // guest wi-fi
	SURGE // legitimate bulk surge on a bottleneck
	REFLECTION
	DDOS // malicious, high volume, low entropy
)

// numKinds is the number of distinct TrafficKind values, used to size per-kind accumulators
const numKinds = int(DDOS) + 1

var kindToStr map[TrafficKind]string = map[TrafficKind]string{
	IOT: "IOT", DNS: "DNS", NTP: "NTP", HTTP: "HTTP", VOIP: "VOIP", EMR: "EMR",
	DICOM: "DICOM", GUEST: "GUEST", SURGE: "SURGE", REFLECTION: "REFLECTION", DDOS: "DDOS"}

func (tk TrafficKind) String() string {
	str, present := kindToStr[tk]
	if !present {
		return "UNKNOWN"
	}
	return str
}

// Class is the priority class a flow is admitted under.  Larger values are served first.
type Class int

const (
	Bronze Class = iota
	Silver
	Gold
)

func (c Class) String() string {
	switch c {
	case Gold:
		return "GOLD"
	case Silver:
		return "SILVER"
	}
	return "BRONZE"
}

// kindClass maps traffic kinds to their priority class.  Kinds that are absent
// (including attack traffic) fall into Bronze.
var kindClass map[TrafficKind]Class = map[TrafficKind]Class{
	// critical control, voice, medical records and network infrastructure
	VOIP: Gold, EMR: Gold, IOT: Gold, DNS: Gold, NTP: Gold,

	// bulk legitimate and background traffic
	DICOM: Silver, HTTP: Silver, SURGE: Silver,
}

// ClassOf returns the priority class of the traffic kind
func ClassOf(kind TrafficKind) Class {
	class, present := kindClass[kind]
	if !present {
		return Bronze
	}
	return class
}

// Flow is one tick's worth of offered traffic of a single kind, at a rate in Mbps
type Flow struct {
	Kind TrafficKind
	Rate float64
}

// Class returns the priority class of the flow
func (f Flow) Class() Class {
	return ClassOf(f.Kind)
}
