// Package chanmap maps interleaved sample frames between ChannelSets:
// straight copy where a position exists in both sets, ITU-style down-mix
// coefficients where an output position has no direct input counterpart,
// and up-mix where an input position feeds multiple outputs.
package chanmap

import "github.com/roc-streaming/roc-toolkit-sub001/pkg/samplespec"

const invSqrt2 = 0.70710678118 // center <-> L/R down/up-mix coefficient

// Mapper maps interleaved frames from one ChannelSet to another.
type Mapper struct {
	in, out samplespec.ChannelSet
	// perOutput[i] lists (inputChannelIndex, coefficient) pairs
	// contributing to output channel i, precomputed once at construction
	// so Map never re-derives the routing table on the hot path.
	perOutput [][]contribution
}

type contribution struct {
	inIndex int
	coeff   float32
}

// New builds a Mapper for the given channel sets. Two surround sets are
// mapped by position; if either set is multitrack, channels are mapped by
// index (identity up to min channel count) since multitrack sets carry no
// position semantics.
func New(in, out samplespec.ChannelSet) *Mapper {
	m := &Mapper{in: in, out: out}

	if in.Layout != samplespec.LayoutSurround || out.Layout != samplespec.LayoutSurround {
		m.perOutput = multitrackRouting(in, out)
		return m
	}

	inPositions := positions(in)
	outPositions := positions(out)
	inIndex := indexOf(inPositions)

	m.perOutput = make([][]contribution, len(outPositions))
	for oi, pos := range outPositions {
		if ii, ok := inIndex[pos]; ok {
			m.perOutput[oi] = []contribution{{ii, 1}}
			continue
		}
		m.perOutput[oi] = downmixFor(pos, inIndex)
	}

	return m
}

// Map maps one interleaved frame (numSamples frames, input.Count()
// channels each) into dst (numSamples frames, output.Count() channels
// each). dst must already be sized; Map overwrites every sample.
func (m *Mapper) Map(src []float32, dst []float32, numSamples int) {
	inCh := m.in.Count()
	outCh := len(m.perOutput)

	for s := 0; s < numSamples; s++ {
		inBase := s * inCh
		outBase := s * outCh
		for oi, contribs := range m.perOutput {
			var acc float32
			for _, c := range contribs {
				acc += src[inBase+c.inIndex] * c.coeff
			}
			dst[outBase+oi] = acc
		}
	}
}

// positions returns the channel positions of a surround set in ascending
// bit order, which is also the canonical interleaving order this module
// uses on the wire.
func positions(cs samplespec.ChannelSet) []samplespec.ChannelPos {
	var out []samplespec.ChannelPos
	for i := 0; i < 64; i++ {
		p := samplespec.ChannelPos(i)
		if cs.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

func indexOf(positions []samplespec.ChannelPos) map[samplespec.ChannelPos]int {
	m := make(map[samplespec.ChannelPos]int, len(positions))
	for i, p := range positions {
		m[p] = i
	}
	return m
}

// downmixFor returns the down-mix contributions for an output position
// that has no direct input counterpart, following the ITU matrices spec.md
// section 4.13 references (center from L+R when center is missing, and
// symmetric up-mix when center exists alone).
func downmixFor(pos samplespec.ChannelPos, in map[samplespec.ChannelPos]int) []contribution {
	switch pos {
	case samplespec.ChanFrontCenter:
		l, lok := in[samplespec.ChanFrontLeft]
		r, rok := in[samplespec.ChanFrontRight]
		if lok && rok {
			return []contribution{{l, invSqrt2}, {r, invSqrt2}}
		}
	case samplespec.ChanFrontLeft:
		if c, ok := in[samplespec.ChanFrontCenter]; ok {
			return []contribution{{c, 1}}
		}
	case samplespec.ChanFrontRight:
		if c, ok := in[samplespec.ChanFrontCenter]; ok {
			return []contribution{{c, 1}}
		}
	case samplespec.ChanBackLeft:
		if s, ok := in[samplespec.ChanSideLeft]; ok {
			return []contribution{{s, 1}}
		}
		if bc, ok := in[samplespec.ChanBackCenter]; ok {
			return []contribution{{bc, invSqrt2}}
		}
	case samplespec.ChanBackRight:
		if s, ok := in[samplespec.ChanSideRight]; ok {
			return []contribution{{s, 1}}
		}
		if bc, ok := in[samplespec.ChanBackCenter]; ok {
			return []contribution{{bc, invSqrt2}}
		}
	case samplespec.ChanSideLeft:
		if bl, ok := in[samplespec.ChanBackLeft]; ok {
			return []contribution{{bl, 1}}
		}
	case samplespec.ChanSideRight:
		if br, ok := in[samplespec.ChanBackRight]; ok {
			return []contribution{{br, 1}}
		}
	case samplespec.ChanBackCenter:
		bl, blok := in[samplespec.ChanBackLeft]
		br, brok := in[samplespec.ChanBackRight]
		if blok && brok {
			return []contribution{{bl, invSqrt2}, {br, invSqrt2}}
		}
	}

	// no representable contribution: silence rather than NaN/garbage,
	// preserving the invariant that every output channel is well-defined.
	if l, ok := in[samplespec.ChanFrontLeft]; ok {
		return []contribution{{l, 0}}
	}
	return []contribution{{0, 0}}
}

func multitrackRouting(in, out samplespec.ChannelSet) [][]contribution {
	n := out.Count()
	inN := in.Count()
	routing := make([][]contribution, n)
	for i := 0; i < n; i++ {
		if i < inN {
			routing[i] = []contribution{{i, 1}}
		} else {
			routing[i] = []contribution{{0, 0}}
		}
	}
	return routing
}
