package sim

// ChannelState tracks the shared "is someone transmitting right now" flags
// nodes consult during CCA (C6). RTS and DATA are tracked separately so
// the statistics sink can distinguish what kind of traffic a node's CCA
// found busy. No locking is needed: the scheduler only ever runs one
// node's non-suspending code at a time.
type ChannelState struct {
	RTSBusy  bool
	DataBusy bool
}

// Busy reports whether either kind of traffic currently occupies the
// channel.
func (c *ChannelState) Busy() bool { return c.RTSBusy || c.DataBusy }
