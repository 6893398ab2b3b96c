package vocab

import (
	"math"
	"math/rand"

	"github.com/RoaringBitmap/roaring/v2"
)

// Compile-time check to ensure Forest satisfies the Quantizer interface.
var _ Quantizer = (*Forest)(nil)

// forestNode is one node of a projection tree. Internal nodes carry a split
// hyperplane and child indices; leaves carry their member word ids.
type forestNode struct {
	normal []float32 // nil marks a leaf
	offset float32
	left   int32
	right  int32
	ids    []uint32
}

// Forest is an approximate quantizer backed by randomized projection trees.
// Each tree recursively splits the vocabulary by the perpendicular bisector
// of two sampled member words. A lookup descends all trees through one shared
// priority queue ordered by hyperplane margin, collects leaf candidates until
// the SearchK budget is met, dedupes them in a bitmap, and re-ranks the
// survivors exactly. Construction is deterministic for a fixed seed.
type Forest struct {
	vocab   *Vocabulary
	trees   [][]forestNode
	searchK int
}

// NewForest creates a projection-forest quantizer for the vocabulary.
// It satisfies the same contract as the exact backend; only the candidate
// budget (SearchK) trades recall for lookup cost.
func NewForest(v *Vocabulary, optFns ...func(o *Options)) (*Forest, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if v == nil || v.Words() == 0 {
		return nil, ErrEmptyVocabulary
	}

	if opts.NumTrees <= 0 {
		opts.NumTrees = DefaultOptions.NumTrees
	}
	if opts.LeafSize <= 0 {
		opts.LeafSize = DefaultOptions.LeafSize
	}

	searchK := opts.SearchK
	if searchK <= 0 {
		searchK = opts.NumTrees * opts.LeafSize
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	ids := make([]uint32, v.Words())
	for i := range ids {
		ids[i] = uint32(i)
	}

	trees := make([][]forestNode, opts.NumTrees)
	for t := range trees {
		b := &treeBuilder{vocab: v, leafSize: opts.LeafSize, rng: rng}
		b.grow(append([]uint32(nil), ids...))
		trees[t] = b.nodes
	}

	return &Forest{vocab: v, trees: trees, searchK: searchK}, nil
}

// NearestWord returns the id of the word with the smallest squared L2
// distance to the descriptor among the collected candidates. The lowest id
// wins ties.
func (f *Forest) NearestWord(descriptor []float32) (int, error) {
	if len(descriptor) != f.vocab.Dim() {
		return 0, &ErrDimensionMismatch{Expected: f.vocab.Dim(), Actual: len(descriptor)}
	}

	candidates := f.collect(descriptor)

	// The bitmap iterates in ascending id order, so strict less-than keeps
	// the lowest id on ties.
	best := -1
	var bestDist float32

	it := candidates.Iterator()
	for it.HasNext() {
		id := it.Next()

		d := squaredL2(descriptor, f.vocab.Word(int(id)))
		if best < 0 || d < bestDist {
			best = int(id)
			bestDist = d
		}
	}

	return best, nil
}

// collect descends all trees at once, always expanding the node with the
// largest remaining margin, until the candidate budget is met or every leaf
// has been visited.
func (f *Forest) collect(descriptor []float32) *roaring.Bitmap {
	var pq descentQueue
	for t := range f.trees {
		pq.push(descentItem{tree: int32(t), node: 0, margin: math.MaxFloat32})
	}

	candidates := roaring.New()

	for pq.len() > 0 && candidates.GetCardinality() < uint64(f.searchK) {
		cur := pq.pop()

		node := &f.trees[cur.tree][cur.node]
		if node.normal == nil {
			candidates.AddMany(node.ids)
			continue
		}

		// Signed distance to the split plane: positive on the right side.
		margin := dot(node.normal, descriptor) - node.offset
		pq.push(descentItem{tree: cur.tree, node: node.right, margin: min(cur.margin, margin)})
		pq.push(descentItem{tree: cur.tree, node: node.left, margin: min(cur.margin, -margin)})
	}

	return candidates
}

// Quantize maps a batch of descriptors to a term-frequency vector.
func (f *Forest) Quantize(descriptors [][]float32) ([]float32, error) {
	return quantizeBatch(f, descriptors)
}

// Words returns the vocabulary size K.
func (f *Forest) Words() int { return f.vocab.Words() }

// Dim returns the descriptor dimensionality D.
func (f *Forest) Dim() int { return f.vocab.Dim() }

// NumTrees returns the number of trees in the forest.
func (f *Forest) NumTrees() int { return len(f.trees) }

// treeBuilder grows one projection tree over a permutation of word ids.
type treeBuilder struct {
	vocab    *Vocabulary
	leafSize int
	rng      *rand.Rand
	nodes    []forestNode
}

// grow appends the subtree covering ids and returns its node index.
func (b *treeBuilder) grow(ids []uint32) int32 {
	idx := int32(len(b.nodes))
	b.nodes = append(b.nodes, forestNode{left: -1, right: -1})

	if len(ids) <= b.leafSize {
		b.nodes[idx].ids = ids
		return idx
	}

	normal, offset, ok := b.sampleSplit(ids)

	var left, right []uint32
	if ok {
		for _, id := range ids {
			if dot(normal, b.vocab.Word(int(id)))-offset >= 0 {
				right = append(right, id)
			} else {
				left = append(left, id)
			}
		}
	}

	// A degenerate split (duplicate words, or every member on one side)
	// falls back to halving the id list so the tree always terminates.
	if len(left) == 0 || len(right) == 0 {
		mid := len(ids) / 2
		left, right = ids[:mid], ids[mid:]
		normal, offset = nil, 0
	}

	leftIdx := b.grow(left)
	rightIdx := b.grow(right)

	if normal == nil {
		// Halved nodes keep a zero hyperplane: both children score the same
		// margin and the descent visits them in push order.
		normal = make([]float32, b.vocab.Dim())
	}

	b.nodes[idx].normal = normal
	b.nodes[idx].offset = offset
	b.nodes[idx].left = leftIdx
	b.nodes[idx].right = rightIdx

	return idx
}

// sampleSplit draws two distinct member words and returns the hyperplane of
// their perpendicular bisector. ok is false when no usable pair was found.
func (b *treeBuilder) sampleSplit(ids []uint32) (normal []float32, offset float32, ok bool) {
	const attempts = 3

	dim := b.vocab.Dim()

	for range attempts {
		i := b.rng.Intn(len(ids))
		j := b.rng.Intn(len(ids) - 1)
		if j >= i {
			j++
		}

		a := b.vocab.Word(int(ids[i]))
		c := b.vocab.Word(int(ids[j]))

		normal = make([]float32, dim)

		var norm2 float32
		for d := range normal {
			normal[d] = c[d] - a[d]
			norm2 += normal[d] * normal[d]
		}

		if norm2 == 0 {
			continue // identical words, resample
		}

		for d := range normal {
			offset += normal[d] * (a[d] + c[d]) * 0.5
		}

		return normal, offset, true
	}

	return nil, 0, false
}

// descentItem is one pending tree node in the cross-tree descent.
type descentItem struct {
	tree   int32
	node   int32
	margin float32
}

// descentQueue is a value-based binary max-heap over descent items, ordered
// by margin. It does not implement container/heap to avoid interface
// overhead.
type descentQueue struct {
	items []descentItem
}

func (pq *descentQueue) len() int { return len(pq.items) }

func (pq *descentQueue) push(item descentItem) {
	pq.items = append(pq.items, item)
	pq.siftUp(len(pq.items) - 1)
}

func (pq *descentQueue) pop() descentItem {
	item := pq.items[0]

	n := len(pq.items)
	pq.items[0] = pq.items[n-1]
	pq.items = pq.items[:n-1]

	if len(pq.items) > 0 {
		pq.siftDown(0)
	}

	return item
}

func (pq *descentQueue) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if pq.items[i].margin <= pq.items[parent].margin {
			break
		}

		pq.items[i], pq.items[parent] = pq.items[parent], pq.items[i]
		i = parent
	}
}

func (pq *descentQueue) siftDown(i int) {
	n := len(pq.items)

	for {
		left := 2*i + 1
		if left >= n {
			break
		}

		largest := left
		if right := left + 1; right < n && pq.items[right].margin > pq.items[left].margin {
			largest = right
		}

		if pq.items[i].margin >= pq.items[largest].margin {
			break
		}

		pq.items[i], pq.items[largest] = pq.items[largest], pq.items[i]
		i = largest
	}
}
