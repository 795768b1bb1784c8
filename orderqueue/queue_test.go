package orderqueue

import (
	"math/rand"
	"testing"

	"matchengine/memory"
	"matchengine/models"
)

func newTestQueue(capacity int) *OrderQueue {
	return New(memory.NewPool[Chunk](capacity))
}

func TestPushFrontPopFIFO(t *testing.T) {
	q := newTestQueue(4)
	h1 := q.Push(models.BasicOrder{OrderId: 1, Qty: 10})
	q.Push(models.BasicOrder{OrderId: 2, Qty: 20})
	q.Push(models.BasicOrder{OrderId: 3, Qty: 30})

	if q.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", q.Size())
	}
	if got := q.Front(); got == nil || got.OrderId != 1 {
		t.Fatalf("Front() = %v, want OrderId 1", got)
	}
	_ = h1

	q.Pop()
	if got := q.Front(); got == nil || got.OrderId != 2 {
		t.Fatalf("Front() after Pop = %v, want OrderId 2", got)
	}
	if q.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", q.Size())
	}
}

func TestLastReturnsMostRecentLive(t *testing.T) {
	q := newTestQueue(4)
	q.Push(models.BasicOrder{OrderId: 1})
	h2 := q.Push(models.BasicOrder{OrderId: 2})
	q.Push(models.BasicOrder{OrderId: 3})

	if got := q.Last(); got == nil || got.OrderId != 3 {
		t.Fatalf("Last() = %v, want OrderId 3", got)
	}

	q.Remove(h2)
	if got := q.Last(); got == nil || got.OrderId != 3 {
		t.Fatalf("Last() after removing non-tail = %v, want OrderId 3", got)
	}
}

// TestCancelPreservesFIFOOrder exercises scenario 5 from spec.md's §8:
// cancelling an order in the middle of a resting queue must not disturb
// the relative order of the orders that remain.
func TestCancelPreservesFIFOOrder(t *testing.T) {
	q := newTestQueue(4)
	q.Push(models.BasicOrder{OrderId: 1})
	h2 := q.Push(models.BasicOrder{OrderId: 2})
	q.Push(models.BasicOrder{OrderId: 3})

	q.Remove(h2)
	if q.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", q.Size())
	}

	var order []models.OrderId
	for !q.Empty() {
		order = append(order, q.Front().OrderId)
		q.Pop()
	}
	want := []models.OrderId{1, 3}
	if len(order) != len(want) || order[0] != want[0] || order[1] != want[1] {
		t.Fatalf("drain order = %v, want %v", order, want)
	}
}

// TestCrossChunkPop exercises scenario 6 from spec.md's §8: pushing beyond
// one chunk's capacity, then popping everything, must walk across the
// chunk boundary transparently and free the drained chunk back to the pool.
func TestCrossChunkPop(t *testing.T) {
	q := newTestQueue(3)
	total := DefaultChunkSize*2 + 5
	for i := 0; i < total; i++ {
		q.Push(models.BasicOrder{OrderId: models.OrderId(i)})
	}
	if q.Size() != total {
		t.Fatalf("Size() = %d, want %d", q.Size(), total)
	}

	for i := 0; i < total; i++ {
		front := q.Front()
		if front == nil || front.OrderId != models.OrderId(i) {
			t.Fatalf("Front() at step %d = %v, want OrderId %d", i, front, i)
		}
		q.Pop()
	}
	if !q.Empty() {
		t.Fatalf("queue not empty after draining all pushed orders")
	}
	if q.head != nil || q.tail != nil {
		t.Fatalf("head/tail not nil after full drain: head=%v tail=%v", q.head, q.tail)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	q := newTestQueue(2)
	h := q.Push(models.BasicOrder{OrderId: 1})
	q.Remove(h)
	q.Remove(h)
	if q.Size() != 0 {
		t.Fatalf("Size() = %d after double remove, want 0", q.Size())
	}
}

func TestStressPushRemovePopConsistency(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	q := newTestQueue(64)

	var live []Handle
	var liveIds []models.OrderId
	nextId := models.OrderId(0)

	for step := 0; step < 5000; step++ {
		switch rng.Intn(3) {
		case 0:
			h := q.Push(models.BasicOrder{OrderId: nextId})
			live = append(live, h)
			liveIds = append(liveIds, nextId)
			nextId++
		case 1:
			if len(live) > 0 {
				i := rng.Intn(len(live))
				q.Remove(live[i])
				live = append(live[:i], live[i+1:]...)
				liveIds = append(liveIds[:i], liveIds[i+1:]...)
			}
		case 2:
			if !q.Empty() {
				front := q.Front()
				if front == nil || len(liveIds) == 0 || front.OrderId != liveIds[0] {
					t.Fatalf("Front() = %v, want %v", front, liveIds)
				}
				q.Pop()
				live = live[1:]
				liveIds = liveIds[1:]
			}
		}
		if q.Size() != len(liveIds) {
			t.Fatalf("Size() = %d, want %d at step %d", q.Size(), len(liveIds), step)
		}
	}
}
