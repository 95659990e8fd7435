package pktsim

// rng.go holds the source of randomness used for loss rolls and latency
// draws.  The source is injectable so that deterministic tests can
// replace it with a fixed sequence

import (
	"github.com/iti/rngstream"
)

// RandomSource supplies the uniform draws the forwarding engine and its
// clients consume.  Implementations need not be safe for concurrent use;
// each simulation instance owns its source
type RandomSource interface {
	UniformFloat(lo, hi float64) float64
}

// streamSource is the default RandomSource, backed by a named rngstream
// stream.  Streams with the same creation history produce the same
// sequence, which gives reproducible runs for a fixed stream name
type streamSource struct {
	rngstrm *rngstream.RngStream
}

// CreateRandomSource is a constructor, returning a RandomSource drawing
// from the rngstream stream with the given name
func CreateRandomSource(name string) RandomSource {
	ss := new(streamSource)
	ss.rngstrm = rngstream.New(name)
	return ss
}

func (ss *streamSource) UniformFloat(lo, hi float64) float64 {
	return lo + (hi-lo)*ss.rngstrm.RandU01()
}
