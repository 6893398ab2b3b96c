package bowgo

import (
	"fmt"
	"sort"
	"sync"
)

// Modality identifies a descriptor family and its fixed dimensionality.
type Modality struct {
	Name string
	Dim  int
}

var (
	// ModalitySIFT is the 128-dimensional SIFT descriptor modality.
	ModalitySIFT = Modality{Name: "sift", Dim: 128}

	// ModalityColorNames is the 11-dimensional color names descriptor
	// modality.
	ModalityColorNames = Modality{Name: "colornames", Dim: 11}
)

var (
	modalityMu       sync.RWMutex
	modalityRegistry = map[string]Modality{
		ModalitySIFT.Name:       ModalitySIFT,
		ModalityColorNames.Name: ModalityColorNames,
	}
)

// RegisterModality adds a modality to the registry. Registering a name twice
// is an error; the built-in modalities are pre-registered.
func RegisterModality(m Modality) error {
	if m.Name == "" || m.Dim <= 0 {
		return fmt.Errorf("invalid modality: name=%q dim=%d", m.Name, m.Dim)
	}

	modalityMu.Lock()
	defer modalityMu.Unlock()

	if _, ok := modalityRegistry[m.Name]; ok {
		return &ErrDuplicateKey{Key: m.Name}
	}
	modalityRegistry[m.Name] = m

	return nil
}

// LookupModality returns the registered modality with the given name.
func LookupModality(name string) (Modality, bool) {
	modalityMu.RLock()
	defer modalityMu.RUnlock()

	m, ok := modalityRegistry[name]
	return m, ok
}

// Modalities returns all registered modalities sorted by name.
func Modalities() []Modality {
	modalityMu.RLock()
	defer modalityMu.RUnlock()

	out := make([]Modality, 0, len(modalityRegistry))
	for _, m := range modalityRegistry {
		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})

	return out
}
