package pktsim

// topo.go builds and queries the run-time representation of the
// topology: devices, the adjacency structure that connects them, and
// shortest-path routes through it.
//
// The general approach follows the usual one of converting the device
// connection lists into the data structures used by a graph package with
// built-in path discovery.  Weighting each edge by 1, a shortest path
// minimizes the number of hops, which is sort of what local routing like
// OSPF does.  The Dijkstra algorithm computes a tree of shortest paths
// from a named node, so for a path from src to dst we either compute a
// tree rooted in src or look it up from a cached version of an already
// computed tree.  Failing that we look for a known tree rooted in dst,
// whose path to src is by symmetry the reversed path we want.

import (
	"fmt"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"math"
)

// DevCode is the base type for an enumerated type of network devices
type DevCode int

const (
	RouterCode DevCode = iota
	SwitchCode
	HostCode
	UnknownCode
)

// devCodeFromStr returns the DevCode corresponding to a string name for it
func devCodeFromStr(code string) DevCode {
	switch code {
	case "Router", "router", "rtr":
		return RouterCode
	case "Switch", "switch":
		return SwitchCode
	case "Host", "host", "endpt":
		return HostCode
	default:
		return UnknownCode
	}
}

// devCodeToStr returns a string corresponding to an input DevCode
func devCodeToStr(code DevCode) string {
	switch code {
	case RouterCode:
		return "Router"
	case SwitchCode:
		return "Switch"
	case HostCode:
		return "Host"
	}

	return "Unknown"
}

// an intrfcRec is the run-time representation of a device interface
type intrfcRec struct {
	name  string // unique name, possibly generated automatically
	faces string // name of the network the interface interacts with
	mac   string // static MAC address, may be empty

	// name of the device on the other end of the interface's link,
	// filled in when links are wired
	connectsTo string
}

// the topoDev interface specifies the functionality different device types provide
type topoDev interface {
	devName() string          // every device has a unique name
	devID() int               // every device has a unique integer id
	devKind() DevCode         // every device is one of the DevCode types
	devIntrfcs() []*intrfcRec // the interfaces the device holds, if any
}

// a routerDev holds information about a router
type routerDev struct {
	routerName    string
	routerID      int
	routerModel   string
	routerIntrfcs []*intrfcRec
}

func (router *routerDev) devName() string          { return router.routerName }
func (router *routerDev) devID() int               { return router.routerID }
func (router *routerDev) devKind() DevCode         { return RouterCode }
func (router *routerDev) devIntrfcs() []*intrfcRec { return router.routerIntrfcs }

// a switchDev holds information about a switch, including the static
// MAC table learned when links are wired
type switchDev struct {
	switchName    string
	switchID      int
	switchIntrfcs []*intrfcRec

	// MAC address of a neighboring interface -> name of the local
	// interface (port) it is reached through
	macTable map[string]string
}

func (swtch *switchDev) devName() string          { return swtch.switchName }
func (swtch *switchDev) devID() int               { return swtch.switchID }
func (swtch *switchDev) devKind() DevCode         { return SwitchCode }
func (swtch *switchDev) devIntrfcs() []*intrfcRec { return swtch.switchIntrfcs }

// learnMAC records which port reaches the given MAC address
func (swtch *switchDev) learnMAC(mac, port string) {
	swtch.macTable[mac] = port
}

// a hostDev holds information about an end device
type hostDev struct {
	hostName    string
	hostID      int
	hostIntrfcs []*intrfcRec
}

func (host *hostDev) devName() string          { return host.hostName }
func (host *hostDev) devID() int               { return host.hostID }
func (host *hostDev) devKind() DevCode         { return HostCode }
func (host *hostDev) devIntrfcs() []*intrfcRec { return host.hostIntrfcs }

// Topo is the run-time topology.  All lookup state is scoped to the
// instance so that independent simulations can coexist in one process
type Topo struct {
	name string

	devByName map[string]topoDev
	devByID   map[int]topoDev
	nets      []string

	// device id -> ids of devices it connects to
	adjacency map[int][]int

	nxtID int

	// graph-package representation, built lazily on the first path query
	gNodes     map[int]simple.Node
	connGraph  *simple.WeightedUndirectedGraph
	graphBuilt bool

	// cached shortest-path trees, keyed by the id of the tree root
	cachedSP map[int]path.Shortest
}

// nxtDevID creates an id for devices unique within this topology
func (topo *Topo) nxtDevID() int {
	topo.nxtID += 1
	return topo.nxtID
}

// addDevLookup puts a new entry in the devByID and devByName maps,
// objecting if the name is already taken
func (topo *Topo) addDevLookup(td topoDev, tm *TraceManager) error {
	_, present := topo.devByName[td.devName()]
	if present {
		return fmt.Errorf("device name %s over-used in topology", td.devName())
	}
	topo.devByName[td.devName()] = td
	topo.devByID[td.devID()] = td

	if tm != nil {
		tm.AddName(td.devID(), td.devName(), devCodeToStr(td.devKind()))
	}
	return nil
}

// intrfcRecsFromDescs converts a desc interface list to run-time records
func intrfcRecsFromDescs(descs []IntrfcDesc) []*intrfcRec {
	recs := make([]*intrfcRec, 0, len(descs))
	for _, id := range descs {
		recs = append(recs, &intrfcRec{name: id.Name, faces: id.Faces, mac: id.MAC})
	}
	return recs
}

// BuildTopo creates the run-time topology from its desc representation.
// When a TraceManager is supplied, every device is registered in its
// id -> (name, type) dictionary
func BuildTopo(tc *TopoCfg, tm *TraceManager) (*Topo, error) {
	topo := new(Topo)
	topo.name = tc.Name
	topo.devByName = make(map[string]topoDev)
	topo.devByID = make(map[int]topoDev)
	topo.adjacency = make(map[int][]int)
	topo.gNodes = make(map[int]simple.Node)
	topo.cachedSP = make(map[int]path.Shortest)

	errList := []error{}

	for _, net := range tc.Networks {
		if slices.Contains(topo.nets, net.Name) {
			errList = append(errList, fmt.Errorf("network name %s over-used in topology", net.Name))
			continue
		}
		topo.nets = append(topo.nets, net.Name)
	}

	// fetch the router descriptions
	for _, rtrDesc := range tc.Routers {
		rtr := &routerDev{
			routerName:    rtrDesc.Name,
			routerID:      topo.nxtDevID(),
			routerModel:   rtrDesc.Model,
			routerIntrfcs: intrfcRecsFromDescs(rtrDesc.Interfaces),
		}
		errList = append(errList, topo.addDevLookup(rtr, tm))
	}

	// fetch the switch descriptions
	for _, swtchDesc := range tc.Switches {
		swtch := &switchDev{
			switchName:    swtchDesc.Name,
			switchID:      topo.nxtDevID(),
			switchIntrfcs: intrfcRecsFromDescs(swtchDesc.Interfaces),
			macTable:      make(map[string]string),
		}
		errList = append(errList, topo.addDevLookup(swtch, tm))
	}

	// fetch the host descriptions
	for _, hostDesc := range tc.Hosts {
		host := &hostDev{
			hostName:    hostDesc.Name,
			hostID:      topo.nxtDevID(),
			hostIntrfcs: intrfcRecsFromDescs(hostDesc.Interfaces),
		}
		errList = append(errList, topo.addDevLookup(host, tm))
	}

	// wire the links, now that all devices are known
	for _, link := range tc.Links {
		errList = append(errList, topo.wireLink(&link))
	}

	err := ReportErrs(errList)
	if err != nil {
		return nil, err
	}
	return topo, nil
}

// findIntrfc returns the named interface record on the given device
func findIntrfc(dev topoDev, name string) *intrfcRec {
	for _, rec := range dev.devIntrfcs() {
		if rec.name == name {
			return rec
		}
	}
	return nil
}

// wireLink records the asserted communication linkage between the two
// devices a LinkDesc names, and teaches any switch endpoint the MAC
// address reachable through its port
func (topo *Topo) wireLink(link *LinkDesc) error {
	devA, presentA := topo.devByName[link.DevA]
	devB, presentB := topo.devByName[link.DevB]
	if !presentA || !presentB {
		return fmt.Errorf("link references unknown device %s or %s", link.DevA, link.DevB)
	}

	intrfcA := findIntrfc(devA, link.IntrfcA)
	intrfcB := findIntrfc(devB, link.IntrfcB)
	if intrfcA == nil || intrfcB == nil {
		return fmt.Errorf("link references unknown interface %s or %s", link.IntrfcA, link.IntrfcB)
	}
	intrfcA.connectsTo = devB.devName()
	intrfcB.connectsTo = devA.devName()

	topo.connectIDs(devA.devID(), devB.devID())

	// switches learn the MAC on the far side of the port
	if swtch, isSwitch := devA.(*switchDev); isSwitch && len(intrfcB.mac) > 0 {
		swtch.learnMAC(intrfcB.mac, intrfcA.name)
	}
	if swtch, isSwitch := devB.(*switchDev); isSwitch && len(intrfcA.mac) > 0 {
		swtch.learnMAC(intrfcA.mac, intrfcB.name)
	}
	return nil
}

// connectIDs remembers the connection between devices with the given id
// numbers through modification of the adjacency map
func (topo *Topo) connectIDs(id1, id2 int) {
	// don't save connections to self if offered
	if id1 == id2 {
		return
	}

	// add id2 to id1's list of peers, if not already present
	if !slices.Contains(topo.adjacency[id1], id2) {
		topo.adjacency[id1] = append(topo.adjacency[id1], id2)
	}

	// add id1 to id2's list of peers, if not already present
	if !slices.Contains(topo.adjacency[id2], id1) {
		topo.adjacency[id2] = append(topo.adjacency[id2], id1)
	}
}

// DeviceExists reports whether the named device appears in the topology
func (topo *Topo) DeviceExists(name string) bool {
	_, present := topo.devByName[name]
	return present
}

// DeviceKind returns the device code of the named device, UnknownCode
// when the device does not exist
func (topo *Topo) DeviceKind(name string) DevCode {
	dev, present := topo.devByName[name]
	if !present {
		return UnknownCode
	}
	return dev.devKind()
}

// DeviceNets returns the names of the networks faced by the named
// device's interfaces
func (topo *Topo) DeviceNets(name string) []string {
	dev, present := topo.devByName[name]
	if !present {
		return nil
	}
	nets := []string{}
	for _, rec := range dev.devIntrfcs() {
		if len(rec.faces) > 0 && !slices.Contains(nets, rec.faces) {
			nets = append(nets, rec.faces)
		}
	}
	return nets
}

// Neighbors returns the names of the devices directly connected to the
// named device
func (topo *Topo) Neighbors(name string) []string {
	dev, present := topo.devByName[name]
	if !present {
		return nil
	}
	nbrs := []string{}
	for _, nbrID := range topo.adjacency[dev.devID()] {
		nbrs = append(nbrs, topo.devByID[nbrID].devName())
	}
	return nbrs
}

// buildConnGraph builds the graph-package representation of the
// adjacency map, weighting every edge by 1
func (topo *Topo) buildConnGraph() {
	topo.connGraph = simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for devID := range topo.devByID {
		_, present := topo.gNodes[devID]
		if present {
			continue
		}
		topo.gNodes[devID] = simple.Node(devID)
	}

	// transform the adjacency map entries into graph-package edges
	for devID, nbrList := range topo.adjacency {
		for _, nbrID := range nbrList {
			weightedEdge := simple.WeightedEdge{F: topo.gNodes[devID], T: topo.gNodes[nbrID], W: 1.0}
			topo.connGraph.SetWeightedEdge(weightedEdge)
		}
	}
	topo.graphBuilt = true
}

// getSPTree returns the shortest path tree rooted in input argument
// 'from'.  If the tree is found in the cache it is returned, if not it
// is computed, saved, and returned
func (topo *Topo) getSPTree(from int) path.Shortest {
	spTree, present := topo.cachedSP[from]
	if present {
		return spTree
	}

	spTree = path.DijkstraFrom(topo.gNodes[from], topo.connGraph)
	topo.cachedSP[from] = spTree

	return spTree
}

// convertNodeSeq extracts device names from a sequence of graph nodes
func (topo *Topo) convertNodeSeq(nsQ []graph.Node) []string {
	rtn := []string{}
	for _, node := range nsQ {
		rtn = append(rtn, topo.devByID[int(node.ID())].devName())
	}
	return rtn
}

// ShortestPath returns the shortest path (as a sequence of device
// names, inclusive of both endpoints) from the named source to the
// named destination, or nil when no path exists
func (topo *Topo) ShortestPath(src, dst string) []string {
	srcDev, presentSrc := topo.devByName[src]
	dstDev, presentDst := topo.devByName[dst]
	if !presentSrc || !presentDst {
		return nil
	}
	if src == dst {
		return []string{src}
	}

	if !topo.graphBuilt {
		topo.buildConnGraph()
	}

	srcID := srcDev.devID()
	dstID := dstDev.devID()

	// if we already have a tree rooted in srcID we can use it.  It may
	// also be that we have a tree rooted in the destination; by symmetry
	// the path is the same, just reversed
	spTree, present := topo.cachedSP[srcID]
	if present {
		nodeSeq, _ := spTree.To(int64(dstID))
		return topo.convertNodeSeq(nodeSeq)
	}

	spTree, present = topo.cachedSP[dstID]
	if present {
		revNodeSeq, _ := spTree.To(int64(srcID))
		revRoute := topo.convertNodeSeq(revNodeSeq)

		route := []string{}
		lenR := len(revRoute)
		for idx := 0; idx < lenR; idx++ {
			route = append(route, revRoute[lenR-idx-1])
		}
		return route
	}

	// no tree rooted in either endpoint, so make one rooted in srcID
	spTree = topo.getSPTree(srcID)
	nodeSeq, _ := spTree.To(int64(dstID))
	return topo.convertNodeSeq(nodeSeq)
}

// CheckConnections checks that every pair of hosts in the topology can
// reach each other, reporting the pairs that cannot
func (topo *Topo) CheckConnections() error {
	errList := []error{}
	for srcName, srcDev := range topo.devByName {
		if srcDev.devKind() != HostCode {
			continue
		}
		for dstName, dstDev := range topo.devByName {
			if dstDev.devKind() != HostCode || srcName == dstName {
				continue
			}
			route := topo.ShortestPath(srcName, dstName)
			if len(route) < 2 {
				errList = append(errList, fmt.Errorf("missing path from %s to %s", srcName, dstName))
			}
		}
	}
	return ReportErrs(errList)
}
