package airtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CongducPham/lorasimmac/internal/airtime"
	"github.com/CongducPham/lorasimmac/internal/lora"
)

func TestComputeSF12BW125(t *testing.T) {
	// SF12/CR4/BW125, 104-byte payload, the "longest airtime" experiment 0/1 preset.
	at := airtime.Compute(lora.BandSubGHz, 12, 4, 104, 125)
	assert.Greater(t, at, 6100.0)
	assert.Less(t, at, 6250.0)
}

func TestComputeMonotonicInPayload(t *testing.T) {
	short := airtime.Compute(lora.BandSubGHz, 7, 1, 5, 125)
	long := airtime.Compute(lora.BandSubGHz, 7, 1, 120, 125)
	assert.Less(t, short, long)
}

func TestComputeLowerSFIsFaster(t *testing.T) {
	sf7 := airtime.Compute(lora.BandSubGHz, 7, 1, 50, 125)
	sf12 := airtime.Compute(lora.BandSubGHz, 12, 1, 50, 125)
	assert.Less(t, sf7, sf12)
}

func TestSensitivityKnownPoints(t *testing.T) {
	dBm, ok := airtime.Sensitivity(lora.BandSubGHz, 12, 125)
	require.True(t, ok)
	assert.Equal(t, -133.25, dBm)

	_, ok = airtime.Sensitivity(lora.BandSubGHz, 12, 999)
	assert.False(t, ok)
}

func TestBestSettingPicksReachableMinimumAirtime(t *testing.T) {
	sf, bw, at, sens, ok := airtime.BestSetting(lora.BandSubGHz, -100, 20)
	require.True(t, ok)
	assert.Greater(t, sf, 0)
	assert.Greater(t, bw, 0.0)
	assert.Greater(t, at, 0.0)
	assert.Less(t, sens, -100.0)
}

func TestBestSettingUnreachable(t *testing.T) {
	_, _, _, _, ok := airtime.BestSetting(lora.BandSubGHz, -200, 20)
	assert.False(t, ok)
}

func TestPacketSetTypeRoundTrip(t *testing.T) {
	p := &lora.Packet{SF: 7, CR: 1, BWKHz: 125, DataLen: 104}
	p.SetType(lora.DataPacket, lora.BandSubGHz, airtime.Compute)
	dataRectime := p.RectimeMs

	p.SetType(lora.RTSPacket, lora.BandSubGHz, airtime.Compute)
	assert.Equal(t, lora.RTSPayloadLen, p.PayloadLen)
	assert.NotEqual(t, dataRectime, p.RectimeMs)

	p.SetType(lora.DataPacket, lora.BandSubGHz, airtime.Compute)
	assert.Equal(t, p.DataLen, p.PayloadLen)
	assert.InDelta(t, dataRectime, p.RectimeMs, 1e-9)
}
