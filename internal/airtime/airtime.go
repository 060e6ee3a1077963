// Package airtime computes LoRa time-on-air (C1) and receiver sensitivity,
// the pure numeric core the rest of the simulator builds on. Formulas and
// sensitivity tables are grounded on the LoRaDesignGuide time-on-air
// formula and the reference MAC's measured/datasheet sensitivity tables.
package airtime

import (
	"math"

	"github.com/CongducPham/lorasimmac/internal/lora"
)

// Compute returns the time on air, in milliseconds, of a packet with the
// given spreading factor, coding rate, payload length (bytes) and
// bandwidth (kHz for sub-GHz, the 203.125/406.25/812.5/1625 set for
// 2.4GHz). The two regimes differ in preamble length, header handling and
// the low-data-rate-optimization (DE) trigger condition.
func Compute(band lora.Band, sf, cr, payloadLen int, bwKHz float64) float64 {
	tsym := math.Pow(2, float64(sf)) / bwKHz

	if band == lora.Band24GHz {
		const npream = 12
		de := 0
		if sf > 10 {
			de = 1
		}
		header := 1
		var tpream float64
		if sf < 7 {
			tpream = (npream + 6.25) * tsym
		} else {
			tpream = (npream + 4.25) * tsym
		}
		var num float64
		if sf >= 7 {
			num = 8.0*float64(payloadLen) + 16 - 4*float64(sf) + 8 + 20*float64(header)
		} else {
			num = 8.0*float64(payloadLen) + 16 - 4*float64(sf) + 20*float64(header)
		}
		payloadSymbNB := 8 + math.Ceil(math.Max(num, 0)/(4*(float64(sf)-2*float64(de))))*float64(cr+4)
		return tpream + payloadSymbNB*tsym
	}

	de := 0
	if bwKHz == 125 && (sf == 11 || sf == 12) {
		de = 1
	}
	header := 0
	if sf == 6 {
		header = 1 // SF6 only supports an implicit header
	}
	const npream = 8
	tpream := (npream + 4.25) * tsym
	num := 8.0*float64(payloadLen) - 4.0*float64(sf) + 28 + 16 - 20*float64(header)
	payloadSymbNB := 8 + math.Max(math.Ceil(num/(4*(float64(sf)-2*float64(de))))*float64(cr+4), 0)
	return tpream + payloadSymbNB*tsym
}

// Preamble returns the preamble duration (DIFS) for a packet, matching the
// Tpream a Packet carries alongside its RectimeMs.
func Preamble(band lora.Band, sf int, bwKHz float64) float64 {
	tsym := math.Pow(2, float64(sf)) / bwKHz
	if band == lora.Band24GHz {
		const npream = 12
		if sf < 7 {
			return (npream + 6.25) * tsym
		}
		return (npream + 4.25) * tsym
	}
	const npream = 8
	return (npream + 4.25) * tsym
}

// subGHzSensitivity[sf-6] = {BW125, BW250, BW500} dBm, sf 6..12.
var subGHzSensitivity = [][3]float64{
	{-118.0, -115.0, -111.0},   // SF6
	{-126.5, -124.25, -120.75}, // SF7
	{-127.25, -126.75, -124.0}, // SF8
	{-131.25, -128.25, -127.5}, // SF9
	{-132.75, -130.25, -128.75},// SF10
	{-134.5, -132.75, -128.75}, // SF11
	{-133.25, -132.25, -132.25},// SF12
}

// band24Sensitivity[sf-5] = {BW203.125, BW406.25, BW812.5, BW1625} dBm, sf 5..12.
var band24Sensitivity = [][4]float64{
	{-109.0, -107.0, -105.0, -99.0},
	{-111.0, -110.0, -118.0, -103.0},
	{-115.0, -113.0, -112.0, -106.0},
	{-118.0, -116.0, -115.0, -109.0},
	{-121.0, -119.0, -117.0, -111.0},
	{-124.0, -122.0, -120.0, -114.0},
	{-127.0, -125.0, -123.0, -117.0},
	{-130.0, -128.0, -126.0, -120.0},
}

var subGHzBands = [3]float64{125, 250, 500}
var band24Bands = [4]float64{203.125, 406.25, 812.5, 1625}

// Sensitivity returns the receiver sensitivity (dBm) for the given
// spreading factor and bandwidth, or ok=false if the (sf, bw) pair is not
// in the table (e.g. a bandwidth the regime doesn't define).
func Sensitivity(band lora.Band, sf int, bwKHz float64) (dBm float64, ok bool) {
	if band == lora.Band24GHz {
		row := sf - 5
		if row < 0 || row >= len(band24Sensitivity) {
			return 0, false
		}
		for col, bw := range band24Bands {
			if bw == bwKHz {
				return band24Sensitivity[row][col], true
			}
		}
		return 0, false
	}
	row := sf - 6
	if row < 0 || row >= len(subGHzSensitivity) {
		return 0, false
	}
	for col, bw := range subGHzBands {
		if bw == bwKHz {
			return subGHzSensitivity[row][col], true
		}
	}
	return 0, false
}

// MinSensitivity returns the best (numerically lowest) sensitivity
// across the whole table for a band, used to size the gateway's maximum
// communication range for experiments that don't force a fixed SF/BW.
func MinSensitivity(band lora.Band) float64 {
	min := math.Inf(1)
	if band == lora.Band24GHz {
		for _, row := range band24Sensitivity {
			for _, v := range row {
				if v < min {
					min = v
				}
			}
		}
		return min
	}
	for _, row := range subGHzSensitivity {
		for _, v := range row {
			if v < min {
				min = v
			}
		}
	}
	return min
}

// BestSetting searches every (SF, BW) combination reachable at rxDBm and
// returns the one with the shortest airtime, per the "experiment 3/5 best
// setting" search. ok is false if no combination is reachable (rxDBm below
// every sensitivity entry). The highest SF row is excluded from the search,
// matching the reference's hardcoded row bound for this search (it never
// considers the last row of its sensitivity table).
func BestSetting(band lora.Band, rxDBm float64, payloadLen int) (sf int, bwKHz, minAirtimeMs, sensitivityDBm float64, ok bool) {
	minAirtimeMs = math.Inf(1)
	table, bands, sfBase := sensitivityTable(band)
	if len(table) > 0 {
		table = table[:len(table)-1]
	}
	for row, sens := range table {
		for col, threshold := range sens {
			if threshold < rxDBm {
				candSF := sfBase + row
				candBW := bands[col]
				at := Compute(band, candSF, 1, payloadLen, candBW)
				if at < minAirtimeMs {
					minAirtimeMs = at
					sf = candSF
					bwKHz = candBW
					sensitivityDBm = threshold
					ok = true
				}
			}
		}
	}
	return
}

func sensitivityTable(band lora.Band) (table [][]float64, bands []float64, sfBase int) {
	if band == lora.Band24GHz {
		t := make([][]float64, len(band24Sensitivity))
		for i, row := range band24Sensitivity {
			t[i] = row[:]
		}
		return t, band24Bands[:], 5
	}
	t := make([][]float64, len(subGHzSensitivity))
	for i, row := range subGHzSensitivity {
		t[i] = row[:]
	}
	return t, subGHzBands[:], 6
}
