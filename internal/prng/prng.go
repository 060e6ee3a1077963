// Copyright (c) 2020-2023, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package prng provides the single seeded random stream the scheduler
// threads through node traffic generation, CCA detection draws and backoff
// selection, so a run is fully reproducible given its seed.
package prng

import (
	"math/rand"
	"time"
)

var gen *rand.Rand

// Seed initializes the package's random stream. seed == 0 picks a
// time-based seed (non-reproducible), matching the CLI's -seed default.
func Seed(seed int64) int64 {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gen = rand.New(rand.NewSource(seed))
	return seed
}

func requireInit() {
	if gen == nil {
		Seed(0)
	}
}

// UniformFloat returns a uniform random value in [lo, hi).
func UniformFloat(lo, hi float64) float64 {
	requireInit()
	if hi <= lo {
		return lo
	}
	return lo + gen.Float64()*(hi-lo)
}

// UniformInt returns a uniform random integer in [lo, hi] inclusive,
// mirroring Python's random.randint(lo, hi) used by the reference MAC.
func UniformInt(lo, hi int) int {
	requireInit()
	if hi <= lo {
		return lo
	}
	return lo + gen.Intn(hi-lo+1)
}

// Exponential draws from an exponential distribution with the given mean,
// mirroring Python's random.expovariate(1/mean).
func Exponential(mean float64) float64 {
	requireInit()
	if mean <= 0 {
		return 0
	}
	return gen.ExpFloat64() * mean
}

// Percent returns true with probability pct/100 (pct in [0, 100]), used
// for the CCA detection-reliability draw.
func Percent(pct int) bool {
	requireInit()
	if pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	return gen.Intn(100) < pct
}

// Float01 returns a uniform value in [0, 1).
func Float01() float64 {
	requireInit()
	return gen.Float64()
}
