package decoder

// ListModeBuffer is one flushed NRL list mode buffer. Timestamp is the UNIX
// time of the flush, which coincides with the last PPS marked event.
type ListModeBuffer struct {
	Events    []ListModeEvent
	Timestamp uint32
}

func (b ListModeBuffer) HasPulse() bool {
	return b.lastPulse() >= 0
}

func (b ListModeBuffer) lastPulse() int {
	for i := len(b.Events) - 1; i >= 0; i-- {
		if b.Events[i].PulseMarker {
			return i
		}
	}
	return -1
}

func (b ListModeBuffer) RelativeTimestamps() []uint32 {
	raw := make([]uint32, len(b.Events))
	for i, evt := range b.Events {
		raw[i] = evt.RelativeTimestamp
	}
	return raw
}
