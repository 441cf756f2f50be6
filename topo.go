package qosnet

// topo.go holds the serializable description of a network topology and the code
// that turns a description into the run-time Topology used by a Simulation.
//
// As in the rest of the package, a description ('Desc') is free of pointers so that
// it can be written to and read from yaml or json files.  The run-time structure
// refers to nodes by their index in the description's node list, and to links by
// their index in an arena of directed links.

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// ErrBadTopology is wrapped by every error reporting an inconsistent topology description
var ErrBadTopology = errors.New("bad topology description")

// Position is the layout position of a node, used only by consumers that draw the network
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// NodeDesc describes a site (or device) of the network
type NodeDesc struct {
	// unique identifier, used by cables and in link names
	ID string `json:"id" yaml:"id"`

	// display label
	Label string `json:"label" yaml:"label"`

	// tier of the building the node sits on
	Floor int `json:"floor" yaml:"floor"`

	// category tag, e.g. "server", "critical", "guest"
	Type string `json:"type" yaml:"type"`

	Pos Position `json:"pos" yaml:"pos"`
}

// CableDesc describes a bidirectional cable.  Each cable is instantiated as two
// directed links with the same capacity and base latency.
type CableDesc struct {
	A string `json:"a" yaml:"a"`
	B string `json:"b" yaml:"b"`

	// capacity in Mbps
	Capacity float64 `json:"capacity" yaml:"capacity"`

	// base latency in milliseconds
	Latency float64 `json:"latency" yaml:"latency"`
}

// TopoDesc is the complete description of a network topology
type TopoDesc struct {
	Name string `json:"name" yaml:"name"`

	// Hub is the node the distributed denial-of-service traffic is aimed at
	Hub string `json:"hub" yaml:"hub"`

	// Attackers are the nodes DDOS traffic originates from
	Attackers []string `json:"attackers" yaml:"attackers"`

	Nodes  []NodeDesc  `json:"nodes" yaml:"nodes"`
	Cables []CableDesc `json:"cables" yaml:"cables"`
}

// CreateTopoDesc is an initialization constructor
func CreateTopoDesc(name string) *TopoDesc {
	td := new(TopoDesc)
	td.Name = name
	td.Attackers = make([]string, 0)
	td.Nodes = make([]NodeDesc, 0)
	td.Cables = make([]CableDesc, 0)
	return td
}

// AddNode includes a node in the description
func (td *TopoDesc) AddNode(id, label string, floor int, nodeType string, x, y float64) {
	td.Nodes = append(td.Nodes, NodeDesc{ID: id, Label: label, Floor: floor, Type: nodeType, Pos: Position{X: x, Y: y}})
}

// AddCable includes a cable between nodes a and b in the description
func (td *TopoDesc) AddCable(a, b string, capacity, latency float64) {
	td.Cables = append(td.Cables, CableDesc{A: a, B: b, Capacity: capacity, Latency: latency})
}

// Validate checks that node ids are unique, that cables, hub and attackers refer
// to known nodes, and that cable parameters are usable
func (td *TopoDesc) Validate() error {
	if len(td.Nodes) == 0 {
		return fmt.Errorf("%w: no nodes", ErrBadTopology)
	}
	seen := make(map[string]bool)
	for _, node := range td.Nodes {
		if node.ID == "" {
			return fmt.Errorf("%w: node with empty id", ErrBadTopology)
		}
		if seen[node.ID] {
			return fmt.Errorf("%w: duplicated node id %s", ErrBadTopology, node.ID)
		}
		seen[node.ID] = true
	}

	cables := make(map[string]bool)
	for _, cable := range td.Cables {
		if !seen[cable.A] || !seen[cable.B] {
			return fmt.Errorf("%w: cable %s-%s refers to an unknown node", ErrBadTopology, cable.A, cable.B)
		}
		if cable.A == cable.B {
			return fmt.Errorf("%w: cable %s-%s is a loop", ErrBadTopology, cable.A, cable.B)
		}
		if cable.Capacity < 0 || cable.Latency <= 0 {
			return fmt.Errorf("%w: cable %s-%s has capacity %g and latency %g",
				ErrBadTopology, cable.A, cable.B, cable.Capacity, cable.Latency)
		}

		// a second cable between the same pair would make the directed link ambiguous
		key, rkey := cable.A+"|"+cable.B, cable.B+"|"+cable.A
		if cables[key] || cables[rkey] {
			return fmt.Errorf("%w: more than one cable between %s and %s", ErrBadTopology, cable.A, cable.B)
		}
		cables[key] = true
	}

	if td.Hub != "" && !seen[td.Hub] {
		return fmt.Errorf("%w: hub %s is not a node", ErrBadTopology, td.Hub)
	}
	for _, attacker := range td.Attackers {
		if !seen[attacker] {
			return fmt.Errorf("%w: attacker %s is not a node", ErrBadTopology, attacker)
		}
	}
	return nil
}

// WriteToFile stores the TopoDesc struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (td *TopoDesc) WriteToFile(filename string) error {
	return writeDescFile(filename, td)
}

// ReadTopoDesc deserializes a byte slice holding a representation of a TopoDesc struct.
// If the input argument of dict (those bytes) is empty, the file whose name is given is read
// to acquire them.  A validated, deserialized representation is returned, or an error if one is
// generated from the file read, the deserialization, or the validation.
func ReadTopoDesc(filename string, useYAML bool, dict []byte) (*TopoDesc, error) {
	var err error

	// if the dict slice of bytes is empty we get them from the file whose name is an argument
	if len(dict) == 0 {
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}

	example := TopoDesc{}

	if useYAML {
		err = yaml.Unmarshal(dict, &example)
	} else {
		err = json.Unmarshal(dict, &example)
	}

	if err != nil {
		return nil, err
	}

	if err = example.Validate(); err != nil {
		return nil, err
	}
	return &example, nil
}

// isYAMLFile reports whether the file extension selects yaml serialization
func isYAMLFile(filename string) bool {
	pathExt := path.Ext(filename)
	return pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml"
}

// writeDescFile serializes obj to json or yaml, chosen by the extension of filename
func writeDescFile(filename string, obj any) error {
	var bytes []byte
	var merr error

	pathExt := path.Ext(filename)
	if isYAMLFile(filename) {
		bytes, merr = yaml.Marshal(obj)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(obj, "", "\t")
	} else {
		return fmt.Errorf("unrecognized extension on file %s", filename)
	}

	if merr != nil {
		return merr
	}
	return os.WriteFile(filename, bytes, 0o644)
}

// DefaultTopoDesc returns the description of the hospital network: a basement server
// room cabled to each floor, plus horizontal cross-department cables
func DefaultTopoDesc() *TopoDesc {
	td := CreateTopoDesc("hospital")
	td.Hub = "Server Room"
	td.Attackers = []string{"Public-Wifi", "Lab", "Wards", "OT-1"}

	td.AddNode("Server Room", "Main Data Center", 0, "server", 500, 500)

	td.AddNode("ICU-A", "ICU Unit A", 1, "critical", 300, 300)
	td.AddNode("ICU-B", "ICU Unit B", 1, "critical", 700, 300)
	td.AddNode("OT-1", "Operation Theater", 1, "critical", 500, 200)

	td.AddNode("Radiology", "Radiology Dept", 2, "high_bandwidth", 400, 400)
	td.AddNode("Lab", "Pathology Lab", 2, "staff", 600, 400)

	td.AddNode("Admin", "Admin Block", 3, "staff", 200, 500)
	td.AddNode("Wards", "Patient Wards", 3, "general", 500, 600)
	td.AddNode("Public-Wifi", "Guest Wi-Fi", 3, "guest", 800, 500)

	// vertical cabling from the server room
	td.AddCable("Server Room", "ICU-A", 2000, 1)
	td.AddCable("Server Room", "ICU-B", 2000, 1)
	td.AddCable("Server Room", "Radiology", 5000, 2)
	td.AddCable("Server Room", "Admin", 1000, 3)

	// horizontal, cross-department cabling
	td.AddCable("ICU-A", "OT-1", 1000, 1)
	td.AddCable("Radiology", "ICU-A", 1000, 2)
	td.AddCable("Radiology", "Lab", 800, 2)
	td.AddCable("Lab", "Server Room", 600, 3)
	td.AddCable("Admin", "Public-Wifi", 500, 5)
	td.AddCable("Admin", "Wards", 500, 3)

	return td
}

type intPair struct {
	i, j int
}

// Topology is the run-time representation of a TopoDesc.  Nodes are immutable once
// built; the Links evolve every tick.
type Topology struct {
	Name  string
	Nodes []NodeDesc

	// Links is an arena of directed links. The cable with index c is instantiated
	// as Links[2c] (A to B) and Links[2c+1] (B to A)
	Links []*Link

	nodeIdx   map[string]int
	linkIdx   map[intPair]int
	hub       int
	attackers []int
	rtr       *router
}

// samplerFactory hands out a named random stream
type samplerFactory func(name string) sampler

// BuildTopology validates the description and creates the nodes and directed links,
// with every link's clock starting at 'now'.  Each link draws its jitter from its own stream.
func BuildTopology(td *TopoDesc, now time.Time) (*Topology, error) {
	return buildTopology(td, now, func(name string) sampler { return createSampler(name) })
}

func buildTopology(td *TopoDesc, now time.Time, rngs samplerFactory) (*Topology, error) {
	if err := td.Validate(); err != nil {
		return nil, err
	}

	topo := new(Topology)
	topo.Name = td.Name
	topo.Nodes = slices.Clone(td.Nodes)
	topo.nodeIdx = make(map[string]int)
	topo.linkIdx = make(map[intPair]int)
	topo.Links = make([]*Link, 0, 2*len(td.Cables))
	topo.hub = -1

	for idx, node := range topo.Nodes {
		topo.nodeIdx[node.ID] = idx
	}

	edges := make(map[int][]int)
	for idx := range topo.Nodes {
		edges[idx] = []int{}
	}

	for _, cable := range td.Cables {
		a, b := topo.nodeIdx[cable.A], topo.nodeIdx[cable.B]

		fwd := createLink(cable.A, cable.B, cable.Capacity, cable.Latency, now, rngs("link:"+cable.A+"->"+cable.B))
		rev := createLink(cable.B, cable.A, cable.Capacity, cable.Latency, now, rngs("link:"+cable.B+"->"+cable.A))

		topo.linkIdx[intPair{i: a, j: b}] = len(topo.Links)
		topo.Links = append(topo.Links, fwd)
		topo.linkIdx[intPair{i: b, j: a}] = len(topo.Links)
		topo.Links = append(topo.Links, rev)

		edges[a] = append(edges[a], b)
		edges[b] = append(edges[b], a)
	}

	if td.Hub != "" {
		topo.hub = topo.nodeIdx[td.Hub]
	}
	for _, attacker := range td.Attackers {
		topo.attackers = append(topo.attackers, topo.nodeIdx[attacker])
	}

	topo.rtr = createRouter(len(topo.Nodes), edges)
	return topo, nil
}

// NodeIndex returns the index of the named node
func (topo *Topology) NodeIndex(id string) (int, bool) {
	idx, present := topo.nodeIdx[id]
	return idx, present
}

// LinkBetween returns the directed link from node index src to node index dst, if there is one
func (topo *Topology) LinkBetween(src, dst int) (*Link, bool) {
	idx, present := topo.linkIdx[intPair{i: src, j: dst}]
	if !present {
		return nil, false
	}
	return topo.Links[idx], true
}

// FindLink is LinkBetween with nodes given by id
func (topo *Topology) FindLink(src, dst string) (*Link, bool) {
	srcIdx, present := topo.nodeIdx[src]
	if !present {
		return nil, false
	}
	dstIdx, present := topo.nodeIdx[dst]
	if !present {
		return nil, false
	}
	return topo.LinkBetween(srcIdx, dstIdx)
}

// pathLinks returns the directed links along the shortest path from src to dst, and false
// if there is no such path
func (topo *Topology) pathLinks(src, dst int) ([]*Link, bool) {
	route, found := topo.rtr.route(src, dst)
	if !found {
		return nil, false
	}
	links := make([]*Link, 0, len(route)-1)
	for idx := 1; idx < len(route); idx++ {
		link, present := topo.LinkBetween(route[idx-1], route[idx])
		if !present {
			return nil, false
		}
		links = append(links, link)
	}
	return links, true
}
