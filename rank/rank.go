package rank

import "sort"

// Match pairs a document key with its distance to the query.
type Match struct {
	Key      string
	Distance float32
}

// SortStable orders matches ascending by distance in place. Equal distances
// keep their input order, so rankings built in insertion order break ties by
// insertion order.
func SortStable(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
}

// selectItem tags a match with its input position so heap ordering can
// resolve equal distances the same way the stable sort does.
type selectItem struct {
	match Match
	seq   int
}

// worse reports whether i ranks after j: larger distance, or equal distance
// and later input position.
func (i selectItem) worse(j selectItem) bool {
	if i.match.Distance != j.match.Distance {
		return i.match.Distance > j.match.Distance
	}
	return i.seq > j.seq
}

// SelectK returns the k best matches ascending by distance without sorting
// the full input. The result equals SortStable followed by truncation to k;
// k <= 0 or k >= len(matches) degrades to the full stable sort. The input
// slice is left untouched.
func SelectK(matches []Match, k int) []Match {
	if k <= 0 || k >= len(matches) {
		out := append([]Match(nil), matches...)
		SortStable(out)

		return out
	}

	// Bounded max-heap: the root is the worst of the best k seen so far.
	// Value-based siftUp/siftDown, no container/heap interface overhead.
	heap := make([]selectItem, 0, k)

	siftDown := func(i int) {
		n := len(heap)
		for {
			left := 2*i + 1
			if left >= n {
				break
			}

			worst := left
			if right := left + 1; right < n && heap[right].worse(heap[left]) {
				worst = right
			}

			if !heap[worst].worse(heap[i]) {
				break
			}

			heap[i], heap[worst] = heap[worst], heap[i]
			i = worst
		}
	}

	for seq, m := range matches {
		item := selectItem{match: m, seq: seq}

		if len(heap) < k {
			heap = append(heap, item)

			for i := len(heap) - 1; i > 0; {
				parent := (i - 1) / 2
				if !heap[i].worse(heap[parent]) {
					break
				}
				heap[i], heap[parent] = heap[parent], heap[i]
				i = parent
			}

			continue
		}

		if heap[0].worse(item) {
			heap[0] = item
			siftDown(0)
		}
	}

	// Drain from the worst end so the output comes out ascending.
	out := make([]Match, len(heap))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap[0].match

		last := len(heap) - 1
		heap[0] = heap[last]
		heap = heap[:last]
		siftDown(0)
	}

	return out
}
