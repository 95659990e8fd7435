package pktsim

// scheduler.go holds the event list that orders pending packet
// deliveries, and the single logical clock that drives the simulation.
// The scheduler is driven by exactly one logical execution context and
// is not safe for concurrent use

import (
	"container/heap"
	"fmt"
	"github.com/iti/evt/vrtime"
)

// An Event marks the future arrival of a packet at the next device on
// its path.  Events are ordered by (time, packet sequence); the sequence
// tie-break makes processing order deterministic when timestamps collide
type Event struct {
	Time vrtime.Time
	Seq  int64
	Pckt *Packet
}

// evtHeap and its methods implement a min-priority heap on the
// (time, sequence) order of pending events
type evtHeap []*Event

func (h evtHeap) Len() int { return len(h) }
func (h evtHeap) Less(i, j int) bool {
	if h[i].Time.Ticks() != h[j].Time.Ticks() {
		return h[i].Time.Ticks() < h[j].Time.Ticks()
	}
	return h[i].Seq < h[j].Seq
}
func (h evtHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *evtHeap) Push(x any) {
	*h = append(*h, x.(*Event))
}

func (h *evtHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// EventScheduler holds the pending events and the logical clock.
// The clock starts at zero and advances only when Pop removes the
// earliest pending event; it never moves backward
type EventScheduler struct {
	now     float64
	pending evtHeap
}

// CreateEventScheduler is a constructor
func CreateEventScheduler() *EventScheduler {
	es := new(EventScheduler)
	es.pending = []*Event{}
	heap.Init(&es.pending)
	return es
}

// Now returns the current logical time, in seconds
func (es *EventScheduler) Now() float64 {
	return es.now
}

// Schedule inserts an event for the given packet at now+delay.
// A negative delay would place the event in the past, which is a caller
// bug, reported loudly rather than clamped
func (es *EventScheduler) Schedule(delay float64, pckt *Packet) {
	if delay < 0.0 {
		panic(fmt.Errorf("event scheduled in the past: delay %g at time %g", delay, es.now))
	}
	evt := &Event{Time: vrtime.SecondsToTime(es.now + delay), Seq: pckt.Seq, Pckt: pckt}
	heap.Push(&es.pending, evt)
}

// Pop removes and returns the earliest-ordered pending event, advancing
// the clock to its timestamp.  The second return is false when no events
// are pending
func (es *EventScheduler) Pop() (*Event, bool) {
	if len(es.pending) == 0 {
		return nil, false
	}
	evt := heap.Pop(&es.pending).(*Event)

	// guard against tick quantization nudging the timestamp below now
	if evt.Time.Seconds() > es.now {
		es.now = evt.Time.Seconds()
	}
	return evt, true
}

// Peek returns the earliest-ordered pending event without removing it
// or advancing the clock
func (es *EventScheduler) Peek() (*Event, bool) {
	if len(es.pending) == 0 {
		return nil, false
	}
	return es.pending[0], true
}

// IsEmpty reports whether any events remain pending
func (es *EventScheduler) IsEmpty() bool {
	return len(es.pending) == 0
}
