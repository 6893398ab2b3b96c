package vocab

// Compile-time check to ensure Exact satisfies the Quantizer interface.
var _ Quantizer = (*Exact)(nil)

// Exact is a quantizer that scans every word linearly. It is the reference
// backend: exact results, O(K·D) per descriptor.
type Exact struct {
	vocab *Vocabulary
}

// NewExact creates an exact quantizer for the vocabulary.
func NewExact(v *Vocabulary) (*Exact, error) {
	if v == nil || v.Words() == 0 {
		return nil, ErrEmptyVocabulary
	}

	return &Exact{vocab: v}, nil
}

// NearestWord returns the id of the word with the smallest squared L2
// distance to the descriptor. The lowest id wins ties.
func (e *Exact) NearestWord(descriptor []float32) (int, error) {
	if len(descriptor) != e.vocab.Dim() {
		return 0, &ErrDimensionMismatch{Expected: e.vocab.Dim(), Actual: len(descriptor)}
	}

	best, _ := nearestInFlat(e.vocab.Flat(), e.vocab.Dim(), descriptor)

	return best, nil
}

// Quantize maps a batch of descriptors to a term-frequency vector.
func (e *Exact) Quantize(descriptors [][]float32) ([]float32, error) {
	return quantizeBatch(e, descriptors)
}

// Words returns the vocabulary size K.
func (e *Exact) Words() int { return e.vocab.Words() }

// Dim returns the descriptor dimensionality D.
func (e *Exact) Dim() int { return e.vocab.Dim() }
