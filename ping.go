package pktsim

// ping.go holds the ping client, which issues echo requests one at a
// time through the forwarding engine and summarizes the round-trip
// statistics

import (
	"fmt"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// A PingResult summarizes one Ping invocation.  Times and the derived
// statistics are in milliseconds.  When nothing was received the
// statistics are all zero and LossPct is 100
type PingResult struct {
	Source string
	Dest   string

	Transmitted int
	Received    int
	Lost        int

	Times []float64

	Min     float64
	Avg     float64
	Max     float64
	Mdev    float64
	LossPct float64
}

// PingService is a client of the forwarding engine
type PingService struct {
	fe *ForwardingEngine
}

// CreatePingService is a constructor
func CreatePingService(fe *ForwardingEngine) *PingService {
	ps := new(PingService)
	ps.fe = fe
	return ps
}

// Ping sends count echo requests from source to dest.  The sends are
// sequential: each packet's terminal outcome is awaited before the next
// is issued, matching the round-trip semantics of real ping.  A
// delivered packet contributes one RTT sample; a dropped one counts as
// lost with no sample
func (ps *PingService) Ping(source, dest string, count int) (*PingResult, error) {
	if count <= 0 {
		return nil, fmt.Errorf("ping count %d must be positive", count)
	}

	pr := &PingResult{Source: source, Dest: dest}

	for idx := 0; idx < count; idx++ {
		pckt, err := ps.fe.Send(source, dest, EchoRequest)
		if err != nil {
			return nil, err
		}
		ps.fe.RunUntilTerminal(pckt)

		pr.Transmitted += 1
		if pckt.State == Delivered {
			pr.Received += 1
			pr.Times = append(pr.Times, (pckt.DeliveredAt-pckt.CreatedAt)*1e3)
		} else {
			pr.Lost += 1
		}
	}

	if pr.Received > 0 {
		pr.Min = floats.Min(pr.Times)
		pr.Max = floats.Max(pr.Times)
		pr.Avg = stat.Mean(pr.Times, nil)

		// sample standard deviation (n-1 divisor), defined as zero
		// when fewer than two samples were received
		if pr.Received > 1 {
			pr.Mdev = stat.StdDev(pr.Times, nil)
		}
	}
	pr.LossPct = float64(pr.Lost) / float64(pr.Transmitted) * 100.0

	return pr, nil
}
