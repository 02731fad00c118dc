package mqtt

import "log"

// bufferedMsg is a serialized message waiting for the broker.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool

	// superseded marks a periodic status message that a newer message on
	// the same topic may replace while it waits.
	superseded bool
}

// ringBuffer holds messages published while the broker is unreachable.
// When full, the oldest message is dropped. A superseded message at the
// tail is replaced by the next superseded message on its topic, so a long
// outage keeps one pending fan reading instead of filling up with them.
// Not safe for concurrent use; the caller must synchronize.
type ringBuffer struct {
	msgs    []bufferedMsg
	start   int // index of the oldest message
	count   int
	dropped int // messages lost to overflow since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{msgs: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) at(i int) int {
	return (r.start + i) % len(r.msgs)
}

func (r *ringBuffer) push(msg bufferedMsg) {
	if msg.superseded && r.count > 0 {
		last := &r.msgs[r.at(r.count-1)]
		if last.superseded && last.topic == msg.topic {
			*last = msg
			return
		}
	}

	if r.count == len(r.msgs) {
		if r.dropped == 0 {
			log.Printf("mqtt: buffer full (%d messages), dropping oldest", len(r.msgs))
		}
		r.dropped++
		r.msgs[r.start] = msg
		r.start = r.at(1)
		return
	}
	r.msgs[r.at(r.count)] = msg
	r.count++
}

// drainAll returns the buffered messages oldest first, the number dropped
// since the last drain, and empties the buffer.
func (r *ringBuffer) drainAll() ([]bufferedMsg, int) {
	dropped := r.dropped
	if r.count == 0 {
		r.dropped = 0
		return nil, dropped
	}

	out := make([]bufferedMsg, r.count)
	for i := range out {
		out[i] = r.msgs[r.at(i)]
	}
	r.start, r.count, r.dropped = 0, 0, 0
	return out, dropped
}

func (r *ringBuffer) len() int {
	return r.count
}
