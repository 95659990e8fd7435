package pktsim

// packet.go defines the unit of simulated traffic, and the enumerated
// types that classify a packet and describe its disposition

// PcktKind is the base type for an enumerated type of packet classifications
type PcktKind int

const (
	EchoRequest PcktKind = iota
	EchoReply
	Data
	RoutingUpdate
)

// pcktKindFromStr returns the PcktKind corresponding to a string name for it
func pcktKindFromStr(kind string) PcktKind {
	switch kind {
	case "echo_request", "EchoRequest":
		return EchoRequest
	case "echo_reply", "EchoReply":
		return EchoReply
	case "routing_update", "RoutingUpdate":
		return RoutingUpdate
	default:
		return Data
	}
}

// pcktKindToStr returns a string corresponding to an input PcktKind
func pcktKindToStr(kind PcktKind) string {
	switch kind {
	case EchoRequest:
		return "echo_request"
	case EchoReply:
		return "echo_reply"
	case RoutingUpdate:
		return "routing_update"
	case Data:
		return "data"
	}

	return "data"
}

// PcktState describes where a packet is in its lifecycle.  A packet is
// created, spends zero or more hops InTransit, and lands in exactly one
// of the two terminal states
type PcktState int

const (
	Created PcktState = iota
	InTransit
	Delivered
	Dropped
)

// DropReason records why a packet entered the Dropped state.  All of
// these are expected simulation outcomes, not errors
type DropReason int

const (
	DropNone DropReason = iota
	DropLoss
	DropNoRoute
	DropLoop
	DropTTL
)

// dropReasonToStr returns a string corresponding to an input DropReason
func dropReasonToStr(reason DropReason) string {
	switch reason {
	case DropLoss:
		return "loss"
	case DropNoRoute:
		return "no_route"
	case DropLoop:
		return "loop_detected"
	case DropTTL:
		return "ttl_expired"
	}

	return "none"
}

// A Packet carries one simulated message through the topology.  The
// identity fields (Source, Dest, Kind, Seq, CreatedAt) are fixed at
// creation; the transit fields (TTL, Path, State, Reason, DeliveredAt)
// are mutated by the forwarding engine on each hop attempt.
type Packet struct {
	Source string   // name of the originating device
	Dest   string   // name of the destination device
	Kind   PcktKind // classification of the traffic

	TTL  int      // remaining hop budget, decremented once per accepted hop
	Path []string // devices visited so far, starting with Source.  Never holds a repeat

	// Seq is unique and monotonically increasing within a simulation
	// instance, and breaks ties between events with equal timestamps
	Seq int64

	CreatedAt   float64 // logical time the packet was created
	DeliveredAt float64 // logical time of delivery, zero otherwise

	State  PcktState
	Reason DropReason // meaningful only when State is Dropped
}

// Terminal reports whether the packet has reached a terminal state.
// Once terminal, the engine makes no further hop attempts for it
func (pckt *Packet) Terminal() bool {
	return pckt.State == Delivered || pckt.State == Dropped
}
