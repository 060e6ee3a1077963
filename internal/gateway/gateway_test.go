package gateway_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CongducPham/lorasimmac/internal/gateway"
	"github.com/CongducPham/lorasimmac/internal/lora"
)

type fakeListener struct {
	id              int
	listening       bool
	hasHint         bool
	rtsFrom         int
	dataFrom        int
	gotRTSFrom      int
	gotRTSAt        float64
	gotDataFrom     int
	cancelledRTS    []int
	cancelledData   []int
}

func (f *fakeListener) ID() int             { return f.id }
func (f *fakeListener) IsListening() bool   { return f.listening }
func (f *fakeListener) HasReceptionHint() bool { return f.hasHint }
func (f *fakeListener) MarkReceivedRTS(from int, at float64, navDataLen int) {
	f.hasHint = true
	f.gotRTSFrom = from
	f.gotRTSAt = at
}
func (f *fakeListener) MarkReceivedData(from int, at float64, navLen int) {
	f.hasHint = true
	f.gotDataFrom = from
}
func (f *fakeListener) CancelReceivedRTSFrom(id int) {
	if f.gotRTSFrom == id {
		f.hasHint = false
		f.cancelledRTS = append(f.cancelledRTS, id)
	}
}
func (f *fakeListener) CancelReceivedDataFrom(id int) {
	if f.gotDataFrom == id {
		f.hasHint = false
		f.cancelledData = append(f.cancelledData, id)
	}
}

func TestArriveCleanNoOthers(t *testing.T) {
	gw := gateway.New(8, true, false, 120)
	p := &lora.Packet{NodeID: 1, FreqHz: 860000000, BWKHz: 125, SF: 7, RSSIDBm: -80}
	collided := gw.Arrive(p, 0)
	assert.False(t, collided)
	assert.True(t, p.Processed)
}

func TestArriveDemodulatorCapacityExceeded(t *testing.T) {
	gw := gateway.New(1, true, false, 120)
	busy := &lora.Packet{NodeID: 1, Processed: true, FreqHz: 1e9, BWKHz: 125, SF: 7}
	gw.Enter(busy)
	busy2 := &lora.Packet{NodeID: 2, Processed: true, FreqHz: 1e9, BWKHz: 125, SF: 7}
	gw.Enter(busy2)

	p := &lora.Packet{NodeID: 3, FreqHz: 2e9, BWKHz: 125, SF: 9}
	gw.Arrive(p, 0)
	assert.False(t, p.Processed, "third packet exceeds demodulator capacity of 1")
}

func TestArriveCollisionMarksBothCasualties(t *testing.T) {
	gw := gateway.New(8, true, false, 120)
	other := &lora.Packet{NodeID: 1, FreqHz: 860000000, BWKHz: 125, SF: 7, RSSIDBm: -100,
		AddTimeMs: 0, RectimeMs: 1000, SymTimeMs: 1}
	gw.Enter(other)

	p := &lora.Packet{NodeID: 2, FreqHz: 860000010, BWKHz: 125, SF: 7, RSSIDBm: -101, SymTimeMs: 1}
	collided := gw.Arrive(p, 1)
	assert.True(t, collided)
	assert.True(t, other.Collided)
}

func TestArriveNAVHintPropagationAndCancellation(t *testing.T) {
	gw := gateway.New(8, true, true, 120)
	listener := &fakeListener{id: 9, listening: true}
	gw.SetListeners([]gateway.Listener{listener})

	rts := &lora.Packet{NodeID: 1, Type: lora.RTSPacket, DataLen: 40,
		FreqHz: 860000000, BWKHz: 125, SF: 7, RSSIDBm: -200}
	collided := gw.Arrive(rts, 5)
	require.False(t, collided)
	assert.Equal(t, 1, listener.gotRTSFrom)
	assert.Equal(t, 5.0, listener.gotRTSAt)

	// now node 1's packet retroactively collides with a much stronger later
	// arrival; the gateway must cancel the hint it gave out on node 1's behalf.
	gw.Enter(rts)
	other := &lora.Packet{NodeID: 2, FreqHz: 860000010, BWKHz: 125, SF: 7, RSSIDBm: -80}
	rts.AddTimeMs = 0
	rts.RectimeMs = 1000
	rts.SymTimeMs = 1
	other.SymTimeMs = 1
	gw.Arrive(other, 1)

	assert.Contains(t, listener.cancelledRTS, 1)
}
