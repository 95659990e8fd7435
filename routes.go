package pktsim

// routes.go holds the routing table owned by each router and the
// resolver that answers next-hop queries for packets in transit

import (
	"fmt"
)

// RouteClass is the base type for an enumerated type of routing table
// entry classes.  Lookup precedence follows the declaration order:
// direct routes shadow static routes, which shadow dynamic ones
type RouteClass int

const (
	DirectRoute RouteClass = iota
	StaticRoute
	DynamicRoute
)

// routeClassToStr returns a string corresponding to an input RouteClass
func routeClassToStr(class RouteClass) string {
	switch class {
	case DirectRoute:
		return "direct"
	case StaticRoute:
		return "static"
	case DynamicRoute:
		return "dynamic"
	}

	return "unknown"
}

// A RouteEntry gives the next hop for traffic addressed to a
// destination network.  Dest is an opaque descriptor: a network name,
// or a device name for a host route
type RouteEntry struct {
	Dest        string
	NextHop     string
	Intrfc      string
	Metric      int
	Class       RouteClass
	LastUpdated float64 // logical time of the last AddRoute touching this entry
}

// A RoutingTable maps destination descriptors to next hops.  At most
// one entry exists per (destination, class) pair
type RoutingTable struct {
	entries map[string]map[RouteClass]*RouteEntry
}

// CreateRoutingTable is a constructor
func CreateRoutingTable() *RoutingTable {
	rt := new(RoutingTable)
	rt.entries = make(map[string]map[RouteClass]*RouteEntry)
	return rt
}

// AddRoute inserts the described entry, replacing any existing entry
// for the same (destination, class) pair.  A negative metric is a
// caller bug, reported loudly
func (rt *RoutingTable) AddRoute(dest, nextHop, intrfc string, metric int, class RouteClass, now float64) {
	if metric < 0 {
		panic(fmt.Errorf("negative metric %d on route to %s", metric, dest))
	}

	_, present := rt.entries[dest]
	if !present {
		rt.entries[dest] = make(map[RouteClass]*RouteEntry)
	}
	rt.entries[dest][class] = &RouteEntry{
		Dest: dest, NextHop: nextHop, Intrfc: intrfc,
		Metric: metric, Class: class, LastUpdated: now,
	}
}

// Entries returns the number of entries held by the table
func (rt *RoutingTable) Entries() int {
	count := 0
	for _, byClass := range rt.entries {
		count += len(byClass)
	}
	return count
}

// lookup returns the best entry matching any of the given destination
// descriptors.  Class precedence is direct > static > dynamic; within a
// class the lowest metric wins.  The second return is false when no
// descriptor matches
func (rt *RoutingTable) lookup(descs []string) (*RouteEntry, bool) {
	var best *RouteEntry
	for _, desc := range descs {
		byClass, present := rt.entries[desc]
		if !present {
			continue
		}
		for _, class := range []RouteClass{DirectRoute, StaticRoute, DynamicRoute} {
			entry, present := byClass[class]
			if !present {
				continue
			}
			if best == nil || entry.Class < best.Class ||
				(entry.Class == best.Class && entry.Metric < best.Metric) {
				best = entry
			}
		}
	}
	return best, best != nil
}

// Topology is the read-only view of the device graph the core consumes.
// ShortestPath returns the ordered device sequence inclusive of both
// endpoints, or nil when no path exists
type Topology interface {
	DeviceExists(name string) bool
	Neighbors(name string) []string
	ShortestPath(src, dst string) []string
}

// DeviceModel exposes the static device attributes the core reads.
// Only routers hold routing tables; DeviceNets names the networks a
// device's interfaces face, which is how table descriptors are matched
// against packet destinations
type DeviceModel interface {
	DeviceKind(name string) DevCode
	DeviceNets(name string) []string
}

// RoutingResolver answers next-hop queries.  A router's own table is
// consulted first; when it holds no matching entry the resolver falls
// back to the topology's shortest path.  The resolver is read-only with
// respect to the topology
type RoutingResolver struct {
	topo   Topology
	devs   DeviceModel
	tables map[string]*RoutingTable
}

// CreateRoutingResolver is a constructor
func CreateRoutingResolver(topo Topology, devs DeviceModel) *RoutingResolver {
	rr := new(RoutingResolver)
	rr.topo = topo
	rr.devs = devs
	rr.tables = make(map[string]*RoutingTable)
	return rr
}

// Table returns the routing table owned by the named router, creating
// it on first use.  Naming an unknown device or one that is not a
// router is a configuration error
func (rr *RoutingResolver) Table(router string) (*RoutingTable, error) {
	if !rr.topo.DeviceExists(router) {
		return nil, fmt.Errorf("unknown device %s", router)
	}
	if rr.devs.DeviceKind(router) != RouterCode {
		return nil, fmt.Errorf("device %s is not a router", router)
	}

	tbl, present := rr.tables[router]
	if !present {
		tbl = CreateRoutingTable()
		rr.tables[router] = tbl
	}
	return tbl, nil
}

// NextHop returns the device a packet at 'current' should be forwarded
// to on its way to 'dest'.  The second return is false when the
// destination is unreachable, an expected outcome the caller treats as
// a drop, not an error
func (rr *RoutingResolver) NextHop(current, dest string) (string, bool) {
	if rr.devs.DeviceKind(current) == RouterCode {
		tbl, present := rr.tables[current]
		if present {
			// match the destination by its own name (host route) or by
			// any network its interfaces face
			descs := append([]string{dest}, rr.devs.DeviceNets(dest)...)
			entry, found := tbl.lookup(descs)
			if found {
				return entry.NextHop, true
			}
		}
	}

	route := rr.topo.ShortestPath(current, dest)
	if len(route) >= 2 {
		return route[1], true
	}
	return "", false
}
