package pktsim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPcktKindStrConversion(t *testing.T) {
	for _, kind := range []PcktKind{EchoRequest, EchoReply, Data, RoutingUpdate} {
		require.Equal(t, kind, pcktKindFromStr(pcktKindToStr(kind)))
	}
	require.Equal(t, EchoRequest, pcktKindFromStr("EchoRequest"))
	require.Equal(t, Data, pcktKindFromStr("anything else"))
}

func TestDropReasonStr(t *testing.T) {
	require.Equal(t, "loss", dropReasonToStr(DropLoss))
	require.Equal(t, "no_route", dropReasonToStr(DropNoRoute))
	require.Equal(t, "loop_detected", dropReasonToStr(DropLoop))
	require.Equal(t, "ttl_expired", dropReasonToStr(DropTTL))
	require.Equal(t, "none", dropReasonToStr(DropNone))
}

func TestDevCodeStrConversion(t *testing.T) {
	for _, code := range []DevCode{RouterCode, SwitchCode, HostCode} {
		require.Equal(t, code, devCodeFromStr(devCodeToStr(code)))
	}
	require.Equal(t, RouterCode, devCodeFromStr("rtr"))
	require.Equal(t, HostCode, devCodeFromStr("endpt"))
	require.Equal(t, UnknownCode, devCodeFromStr("toaster"))
}

func TestRouteClassStr(t *testing.T) {
	require.Equal(t, "direct", routeClassToStr(DirectRoute))
	require.Equal(t, "static", routeClassToStr(StaticRoute))
	require.Equal(t, "dynamic", routeClassToStr(DynamicRoute))
}

func TestPacketTerminal(t *testing.T) {
	pckt := &Packet{State: Created}
	require.False(t, pckt.Terminal())
	pckt.State = InTransit
	require.False(t, pckt.Terminal())
	pckt.State = Delivered
	require.True(t, pckt.Terminal())
	pckt.State = Dropped
	require.True(t, pckt.Terminal())
}
