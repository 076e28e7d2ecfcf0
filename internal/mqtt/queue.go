package mqtt

// queuedMsg holds one message waiting for the broker connection to return.
type queuedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// offlineQueue is a bounded FIFO for messages produced while the broker is
// unreachable. When full, the oldest entry gives way so a replay favors the
// most recent state. Callers synchronize access; the queue holds no lock.
type offlineQueue struct {
	msgs    []queuedMsg
	tail    int // index of the oldest queued message
	n       int
	dropped int // evicted since the last drain
}

func newOfflineQueue(capacity int) *offlineQueue {
	return &offlineQueue{msgs: make([]queuedMsg, capacity)}
}

// enqueue appends msg, evicting the oldest entry when the queue is full.
func (q *offlineQueue) enqueue(msg queuedMsg) {
	if q.n == len(q.msgs) {
		q.msgs[q.tail] = msg
		q.tail = (q.tail + 1) % len(q.msgs)
		q.dropped++
		return
	}
	q.msgs[(q.tail+q.n)%len(q.msgs)] = msg
	q.n++
}

// drain returns the queued messages oldest-first along with how many were
// evicted since the previous drain, and leaves the queue empty.
func (q *offlineQueue) drain() ([]queuedMsg, int) {
	dropped := q.dropped
	q.dropped = 0
	if q.n == 0 {
		return nil, dropped
	}
	out := make([]queuedMsg, q.n)
	for i := range out {
		out[i] = q.msgs[(q.tail+i)%len(q.msgs)]
	}
	q.tail = 0
	q.n = 0
	return out, dropped
}

func (q *offlineQueue) len() int {
	return q.n
}
