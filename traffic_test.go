package qosnet

import (
	"errors"
	"testing"
)

func countKind(link *Link, kind TrafficKind) int {
	count := 0
	for _, flow := range link.offered {
		if flow.Kind == kind {
			count += 1
		}
	}
	return count
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{"NORMAL": Normal, "congested": Congested, " DDoS ": DDoS}
	for name, want := range tests {
		got, err := ParseMode(name)
		if err != nil || got != want {
			t.Errorf("Expected %s from %q, got %s (%v)", want, name, got, err)
		}
	}
	if _, err := ParseMode("panic"); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("Expected ErrUnknownMode, got %v", err)
	}

	var mode Mode
	if err := mode.UnmarshalText([]byte("DDOS")); err != nil || mode != DDoS {
		t.Errorf("Expected DDOS, got %s (%v)", mode, err)
	}
}

func TestGenerateNormal(t *testing.T) {
	topo := testTopology(t, DefaultTopoDesc())
	tg := createTrafficGenerator(createSampler("normal"))
	tg.generate(topo, Normal)

	for _, link := range topo.Links {
		if countKind(link, IOT) != 1 || countKind(link, DNS) != 1 || countKind(link, HTTP) < 1 {
			t.Errorf("Expected IOT, DNS and HTTP on %s, got %v", link.Name(), link.offered)
		}
		if countKind(link, DDOS) != 0 || countKind(link, SURGE) != 0 || countKind(link, REFLECTION) != 0 {
			t.Errorf("Expected no surge or attack traffic on %s", link.Name())
		}
	}
}

func TestGenerateCongested(t *testing.T) {
	topo := testTopology(t, DefaultTopoDesc())
	tg := createTrafficGenerator(createSampler("congested"))
	tg.generate(topo, Congested)

	surged := 0
	for _, link := range topo.Links {
		for _, kind := range []TrafficKind{IOT, DNS, DICOM, VOIP} {
			if countKind(link, kind) != 1 {
				t.Errorf("Expected one %s flow on %s", kind, link.Name())
			}
		}
		for _, flow := range link.offered {
			if flow.Kind == SURGE {
				surged += 1
				if flow.Rate < 300 || flow.Rate >= 600 {
					t.Errorf("Expected a surge in [300,600), got %g", flow.Rate)
				}
			}
		}
	}
	if surged != numBottlenecks {
		t.Errorf("Expected %d surged links, got %d", numBottlenecks, surged)
	}
}

func TestGenerateDDoSFollowsAttackPaths(t *testing.T) {
	topo := testTopology(t, DefaultTopoDesc())
	tg := createTrafficGenerator(createSampler("ddos"))
	tg.generate(topo, DDoS)

	// Public-Wifi and Wards both reach the hub through Admin
	want := map[string]int{
		"Public-Wifi->Admin": 1, "Wards->Admin": 1, "Admin->Server Room": 2,
		"OT-1->ICU-A": 1, "ICU-A->Server Room": 1, "Lab->Server Room": 1,
	}
	for _, link := range topo.Links {
		if got := countKind(link, DDOS); got != want[link.Name()] {
			t.Errorf("Expected %d attack flows on %s, got %d", want[link.Name()], link.Name(), got)
		}
		if countKind(link, REFLECTION) != 1 {
			t.Errorf("Expected a reflection flow on %s", link.Name())
		}
		if countKind(link, IOT) != 1 {
			t.Errorf("Expected the baseline kept on %s", link.Name())
		}
	}
}

func TestMeshFlowFollowsShortestPath(t *testing.T) {
	topo := testTopology(t, DefaultTopoDesc())

	// mesh draw succeeds, source index 8 (Public-Wifi), destination index 5 (Lab), rate 40
	tg := createTrafficGenerator(&seqSampler{samples: []float64{0.1, 0.99, 5.5 / 8, 0.5}})
	tg.mesh(topo, Congested)

	// Public-Wifi -> Admin -> Server Room -> Lab
	for _, name := range []string{"Public-Wifi->Admin", "Admin->Server Room", "Server Room->Lab"} {
		src, dst := splitName(name)
		link, _ := topo.FindLink(src, dst)
		if len(link.offered) != 1 || link.offered[0].Kind != HTTP || link.offered[0].Rate != 80 {
			t.Errorf("Expected one doubled HTTP flow on %s, got %v", name, link.offered)
		}
	}

	total := 0
	for _, link := range topo.Links {
		total += len(link.offered)
	}
	if total != 3 {
		t.Errorf("Expected the mesh flow on 3 links, got %d", total)
	}
}

func splitName(name string) (string, string) {
	for idx := 0; idx+1 < len(name); idx++ {
		if name[idx] == '-' && name[idx+1] == '>' {
			return name[:idx], name[idx+2:]
		}
	}
	return name, ""
}

func TestMeshFlowSkipped(t *testing.T) {
	topo := testTopology(t, DefaultTopoDesc())
	tg := createTrafficGenerator(&fixedSampler{u: 0.95})
	tg.mesh(topo, Normal)

	for _, link := range topo.Links {
		if len(link.offered) != 0 {
			t.Errorf("Expected no mesh flow, found one on %s", link.Name())
		}
	}
}
