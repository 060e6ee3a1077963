// Package radio implements the pairwise collision tests the gateway
// applies to packets overlapping in time at the receiver (C2): frequency
// overlap, spreading-factor match, preamble-timing capture, and received
// power capture.
package radio

import "github.com/CongducPham/lorasimmac/internal/lora"

// FrequencyCollision reports whether p1 and p2's channels overlap closely
// enough to interfere, given the wider of the two bandwidths.
//
// The reference MAC this is ported from keyed the 500/250 kHz bandwidth
// checks off the SECOND packet's center frequency (p2.freq==500) instead
// of its bandwidth (p2.bw==500) — comparing a value in Hz against a
// constant meant for kHz bandwidths, so those branches could only ever be
// false. This implementation uses p2.BWKHz, the corrected condition: two
// packets collide in frequency whenever either side's bandwidth is wide
// enough to bring them within range, not only the first packet's.
func FrequencyCollision(p1, p2 *lora.Packet) bool {
	diff := p1.FreqHz - p2.FreqHz
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff <= 120 && (p1.BWKHz == 500 || p2.BWKHz == 500):
		return true
	case diff <= 60 && (p1.BWKHz == 250 || p2.BWKHz == 250):
		return true
	default:
		return diff <= 30
	}
}

// SFCollision reports whether p1 and p2 share a spreading factor, a
// precondition for them to be mutually demodulable as interference.
func SFCollision(p1, p2 *lora.Packet) bool {
	return p1.SF == p2.SF
}

// npreamCritical is the number of leading preamble symbols (out of the
// full preamble) that must be undisturbed for a receiver to still lock
// onto p1; the remaining symbols tolerate interference.
const npreamCritical = 8 - 5

// TimingCollision reports whether p1, arriving now, has started early
// enough that the already in-flight p2 is still on the air when p1's
// critical preamble section ends — i.e. p1 is NOT "saved by the
// preamble".
func TimingCollision(nowMs float64, p1, p2 *lora.Packet) bool {
	tsym := p1.SymTimeMs
	tpreambleCritical := tsym * npreamCritical
	p2End := p2.AddTimeMs + p2.RectimeMs
	p1CriticalSectionEnd := nowMs + tpreambleCritical
	return p1CriticalSectionEnd < p2End
}

// powerThresholdDB is the capture-effect margin: the stronger packet
// survives a collision only if it exceeds the weaker one by at least this
// much; the weaker packet never survives.
const powerThresholdDB = 6

// PowerCollision applies the capture-effect power test and returns which
// of p1, p2 (if any) are casualties. A near-tie (within powerThresholdDB)
// destroys both; otherwise only the weaker packet is lost.
func PowerCollision(p1, p2 *lora.Packet) (casualties []*lora.Packet) {
	diff := p1.RSSIDBm - p2.RSSIDBm
	if diff < 0 {
		diff = -diff
	}
	if diff < powerThresholdDB {
		return []*lora.Packet{p1, p2}
	}
	if p1.RSSIDBm-p2.RSSIDBm < powerThresholdDB {
		return []*lora.Packet{p1}
	}
	return []*lora.Packet{p2}
}

// Collides runs the full pairwise test (frequency, SF, timing, power) used
// when "full collision" checking is enabled, returning every packet this
// pairwise comparison marks as a casualty.
func Collides(nowMs float64, p1, p2 *lora.Packet) (casualties []*lora.Packet) {
	if !FrequencyCollision(p1, p2) || !SFCollision(p1, p2) {
		return nil
	}
	if !TimingCollision(nowMs, p1, p2) {
		return nil
	}
	return PowerCollision(p1, p2)
}

// CollidesSimple is the simplified (non-"full-collision") mode: any
// frequency+SF overlap destroys both packets unconditionally, skipping the
// timing and power capture analysis.
func CollidesSimple(p1, p2 *lora.Packet) bool {
	return FrequencyCollision(p1, p2) && SFCollision(p1, p2)
}
