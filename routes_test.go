package pktsim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoutingTableClassPrecedence(t *testing.T) {
	rt := CreateRoutingTable()
	rt.AddRoute("netC", "viaDynamic", "", 1, DynamicRoute, 0.0)
	rt.AddRoute("netC", "viaStatic", "", 10, StaticRoute, 0.0)

	// static shadows dynamic even at a worse metric
	entry, found := rt.lookup([]string{"netC"})
	require.True(t, found)
	require.Equal(t, "viaStatic", entry.NextHop)

	rt.AddRoute("netC", "viaDirect", "", 20, DirectRoute, 0.0)
	entry, found = rt.lookup([]string{"netC"})
	require.True(t, found)
	require.Equal(t, "viaDirect", entry.NextHop)
}

func TestRoutingTableMetricTieBreak(t *testing.T) {
	rt := CreateRoutingTable()
	rt.AddRoute("netC", "far", "", 5, DynamicRoute, 0.0)
	rt.AddRoute("netD", "near", "", 2, DynamicRoute, 0.0)

	// a single lookup spanning several matching descriptors picks the
	// lowest metric within the winning class
	entry, found := rt.lookup([]string{"netC", "netD"})
	require.True(t, found)
	require.Equal(t, "near", entry.NextHop)
}

func TestRoutingTableReplacement(t *testing.T) {
	rt := CreateRoutingTable()
	rt.AddRoute("netC", "old", "", 3, StaticRoute, 1.0)
	rt.AddRoute("netC", "new", "", 3, StaticRoute, 2.0)

	require.Equal(t, 1, rt.Entries())
	entry, found := rt.lookup([]string{"netC"})
	require.True(t, found)
	require.Equal(t, "new", entry.NextHop)
	require.Equal(t, 2.0, entry.LastUpdated)

	// a different class for the same destination is a distinct entry
	rt.AddRoute("netC", "learned", "", 3, DynamicRoute, 3.0)
	require.Equal(t, 2, rt.Entries())
}

func TestRoutingTableNegativeMetric(t *testing.T) {
	rt := CreateRoutingTable()
	require.Panics(t, func() {
		rt.AddRoute("netC", "B", "", -1, StaticRoute, 0.0)
	})
}

func TestRoutingTableLookupMiss(t *testing.T) {
	rt := CreateRoutingTable()
	_, found := rt.lookup([]string{"netC", "C"})
	require.False(t, found)
}

func TestResolverTableValidation(t *testing.T) {
	topo := lineTopo(t)
	rr := CreateRoutingResolver(topo, topo)

	_, err := rr.Table("nowhere")
	require.Error(t, err)
	_, err = rr.Table("A")
	require.Error(t, err)

	tbl, err := rr.Table("B")
	require.NoError(t, err)
	require.NotNil(t, tbl)

	// the same table instance is returned on later calls
	again, err := rr.Table("B")
	require.NoError(t, err)
	require.Same(t, tbl, again)
}

func TestResolverPrefersTableOverShortestPath(t *testing.T) {
	// B's shortest path to C is the direct link; a table entry for C's
	// network overrides it
	topo := lineTopo(t)
	rr := CreateRoutingResolver(topo, topo)

	nxt, found := rr.NextHop("B", "C")
	require.True(t, found)
	require.Equal(t, "C", nxt)

	tbl, err := rr.Table("B")
	require.NoError(t, err)
	tbl.AddRoute("netC", "A", "", 1, StaticRoute, 0.0)

	nxt, found = rr.NextHop("B", "C")
	require.True(t, found)
	require.Equal(t, "A", nxt)
}

func TestResolverHostRouteByDeviceName(t *testing.T) {
	topo := lineTopo(t)
	rr := CreateRoutingResolver(topo, topo)

	tbl, err := rr.Table("B")
	require.NoError(t, err)
	// host routes match by the destination's own name
	tbl.AddRoute("C", "A", "", 1, StaticRoute, 0.0)

	nxt, found := rr.NextHop("B", "C")
	require.True(t, found)
	require.Equal(t, "A", nxt)
}

func TestResolverShortestPathFallback(t *testing.T) {
	topo := lineTopo(t)
	rr := CreateRoutingResolver(topo, topo)

	// hosts hold no tables; forwarding from A follows the graph
	nxt, found := rr.NextHop("A", "C")
	require.True(t, found)
	require.Equal(t, "B", nxt)
}

func TestResolverUnreachable(t *testing.T) {
	tc := lineTopoCfg(t)
	tc.AddHost("D")
	topo, err := BuildTopo(tc, nil)
	require.NoError(t, err)

	rr := CreateRoutingResolver(topo, topo)
	_, found := rr.NextHop("A", "D")
	require.False(t, found)
}
