package channel

// queue is a FIFO backed by a ring of slots that grows on demand.
type queue[T any] struct {
	buf   []T
	head  int
	count int
}

func (q *queue[T]) len() int {
	return q.count
}

func (q *queue[T]) grow() {
	size := len(q.buf) * 2
	if size == 0 {
		size = 8
	}
	next := make([]T, size)
	for i := 0; i < q.count; i++ {
		next[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = next
	q.head = 0
}

func (q *queue[T]) enqueue(v T) {
	if q.count == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.count)%len(q.buf)] = v
	q.count++
}

func (q *queue[T]) pushFront(v T) {
	if q.count == len(q.buf) {
		q.grow()
	}
	q.head = (q.head - 1 + len(q.buf)) % len(q.buf)
	q.buf[q.head] = v
	q.count++
}

func (q *queue[T]) dequeue() (T, bool) {
	var zero T
	if q.count == 0 {
		return zero, false
	}
	v := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return v, true
}

// removeFunc deletes the first element matching match, preserving order.
func (q *queue[T]) removeFunc(match func(T) bool) bool {
	for i := 0; i < q.count; i++ {
		if !match(q.buf[(q.head+i)%len(q.buf)]) {
			continue
		}
		for j := i; j < q.count-1; j++ {
			q.buf[(q.head+j)%len(q.buf)] = q.buf[(q.head+j+1)%len(q.buf)]
		}
		var zero T
		q.buf[(q.head+q.count-1)%len(q.buf)] = zero
		q.count--
		return true
	}
	return false
}
