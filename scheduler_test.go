package pktsim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func schedPckt(seq int64) *Packet {
	return &Packet{Source: "A", Dest: "C", Seq: seq, State: InTransit}
}

func TestSchedulerOrdersByTime(t *testing.T) {
	es := CreateEventScheduler()
	require.True(t, es.IsEmpty())
	require.Equal(t, 0.0, es.Now())

	es.Schedule(0.003, schedPckt(1))
	es.Schedule(0.001, schedPckt(2))
	es.Schedule(0.002, schedPckt(3))

	var seqs []int64
	for {
		evt, present := es.Pop()
		if !present {
			break
		}
		seqs = append(seqs, evt.Seq)
	}
	require.Equal(t, []int64{2, 3, 1}, seqs)
	require.InDelta(t, 0.003, es.Now(), 1e-6)
	require.True(t, es.IsEmpty())
}

func TestSchedulerEqualTimeSequenceOrder(t *testing.T) {
	es := CreateEventScheduler()

	// identical timestamps, shuffled insertion
	for _, seq := range []int64{4, 1, 5, 3, 2} {
		es.Schedule(0.005, schedPckt(seq))
	}

	for want := int64(1); want <= 5; want++ {
		evt, present := es.Pop()
		require.True(t, present)
		require.Equal(t, want, evt.Seq)
	}
}

func TestSchedulerClockNeverMovesBackward(t *testing.T) {
	es := CreateEventScheduler()
	es.Schedule(0.004, schedPckt(1))

	_, present := es.Pop()
	require.True(t, present)
	require.InDelta(t, 0.004, es.Now(), 1e-6)

	// an event scheduled for the current instant leaves the clock alone
	es.Schedule(0.0, schedPckt(2))
	_, present = es.Pop()
	require.True(t, present)
	require.InDelta(t, 0.004, es.Now(), 1e-6)
}

func TestSchedulerRejectsNegativeDelay(t *testing.T) {
	es := CreateEventScheduler()
	require.Panics(t, func() { es.Schedule(-0.001, schedPckt(1)) })
}

func TestSchedulerPeek(t *testing.T) {
	es := CreateEventScheduler()

	_, present := es.Peek()
	require.False(t, present)

	es.Schedule(0.002, schedPckt(7))
	evt, present := es.Peek()
	require.True(t, present)
	require.Equal(t, int64(7), evt.Seq)

	// Peek does not consume or advance
	require.Equal(t, 0.0, es.Now())
	require.False(t, es.IsEmpty())
}
