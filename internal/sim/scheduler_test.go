package sim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CongducPham/lorasimmac/internal/sim"
)

func TestSchedulerOrdersByTimestampThenNodeID(t *testing.T) {
	s := sim.NewScheduler(1000)
	var order []int

	s.Register(2)
	s.Register(1)
	s.Register(0)

	run := func(id int, firstDelay float64) {
		s.Sleep(id, firstDelay)
		order = append(order, id)
		s.Finish(id)
	}

	s.Start(2, func() { run(2, 10) })
	s.Start(1, func() { run(1, 10) })
	s.Start(0, func() { run(0, 20) })

	s.Run()

	// node 1 and node 2 both wake at t=10; node 1 (lower id) must run first.
	assert.Equal(t, []int{1, 2, 0}, order)
}

func TestSchedulerStopsAtSimtimeHorizon(t *testing.T) {
	s := sim.NewScheduler(5)
	ran := false

	s.Register(0)
	s.Start(0, func() {
		s.Sleep(0, 100) // past the horizon
		ran = true
		s.Finish(0)
	})

	s.Run()
	assert.False(t, ran, "node must not wake past the simtime horizon")
}

func TestSchedulerNowAdvances(t *testing.T) {
	s := sim.NewScheduler(1000)
	var seen []float64

	s.Register(0)
	s.Start(0, func() {
		for i := 0; i < 3; i++ {
			s.Sleep(0, 10)
			seen = append(seen, s.Now())
		}
		s.Finish(0)
	})
	s.Run()

	assert.Equal(t, []float64{10, 20, 30}, seen)
}
