package scheduler

import "sort"

// queue keeps descriptors sorted descending by NextExecutionTime, so
// the soonest-due descriptor sits at the tail (largest index) and a
// pop-back is O(1). Ascending queue *position* toward soonest
// execution, not ascending time value front-to-back.
type queue struct {
	items []*Descriptor
}

// insert places d so items remain descending by NextExecutionTime.
// Equal times land at the lowest index among their equals, so the
// earliest-inserted of a tie is nearest the tail and runs first.
func (q *queue) insert(d *Descriptor) {
	i := sort.Search(len(q.items), func(i int) bool {
		return !q.items[i].NextExecutionTime.After(d.NextExecutionTime)
	})
	q.items = append(q.items, nil)
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = d
}

// popTail removes and returns the soonest-due descriptor.
func (q *queue) popTail() *Descriptor {
	n := len(q.items)
	if n == 0 {
		return nil
	}
	d := q.items[n-1]
	q.items = q.items[:n-1]
	return d
}

// peekTail returns the soonest-due descriptor without removing it.
func (q *queue) peekTail() *Descriptor {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[len(q.items)-1]
}

func (q *queue) len() int { return len(q.items) }

// snapshot returns a shallow copy of the queue's current contents for
// read-only enumeration (e.g. WorkingTasks).
func (q *queue) snapshot() []*Descriptor {
	out := make([]*Descriptor, len(q.items))
	copy(out, q.items)
	return out
}
