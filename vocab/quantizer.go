package vocab

// Quantizer maps descriptors onto visual word ids.
//
// NearestWord and Quantize are pure lookups against the immutable vocabulary,
// so a Quantizer is safe for concurrent use.
type Quantizer interface {
	// NearestWord returns the id of the word closest to the descriptor.
	NearestWord(descriptor []float32) (int, error)

	// Quantize maps a batch of N descriptors to a length-K term-frequency
	// vector. The counts always sum to N: every descriptor lands on exactly
	// one word. Dimension validation covers the whole batch before any
	// counting starts.
	Quantize(descriptors [][]float32) ([]float32, error)

	// Words returns the vocabulary size K.
	Words() int

	// Dim returns the descriptor dimensionality D.
	Dim() int
}

// Options contains configuration options for quantizer construction.
type Options struct {
	// ExactMaxWords is the largest vocabulary New serves with the exact
	// linear scan. Vocabularies above it get the projection forest.
	ExactMaxWords int

	// NumTrees is the number of randomized projection trees in the forest.
	NumTrees int

	// LeafSize is the maximum number of word ids per forest leaf.
	LeafSize int

	// SearchK is the candidate budget per lookup. Zero means
	// NumTrees * LeafSize.
	SearchK int

	// Seed fixes the tree construction; the same vocabulary and seed always
	// build the same forest.
	Seed int64
}

// DefaultOptions contains the default configuration options for quantizer
// construction.
var DefaultOptions = Options{
	ExactMaxWords: 15000,
	NumTrees:      20,
	LeafSize:      16,
	SearchK:       0,
	Seed:          1,
}

// New creates a quantizer for the vocabulary, selecting the backend by size:
// the exact linear scan up to ExactMaxWords words, the randomized projection
// forest above it. Both backends satisfy the same Quantizer contract.
func New(v *Vocabulary, optFns ...func(o *Options)) (Quantizer, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if v == nil || v.Words() == 0 {
		return nil, ErrEmptyVocabulary
	}

	if v.Words() <= opts.ExactMaxWords {
		return NewExact(v)
	}

	return NewForest(v, optFns...)
}

// quantizeBatch validates every descriptor's width before any counting, then
// accumulates nearest-word hits into a fresh term-frequency vector.
func quantizeBatch(q Quantizer, descriptors [][]float32) ([]float32, error) {
	dim := q.Dim()
	for _, d := range descriptors {
		if len(d) != dim {
			return nil, &ErrDimensionMismatch{Expected: dim, Actual: len(d)}
		}
	}

	tf := make([]float32, q.Words())
	for _, d := range descriptors {
		w, err := q.NearestWord(d)
		if err != nil {
			return nil, err
		}
		tf[w]++
	}

	return tf, nil
}
