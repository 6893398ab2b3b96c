package rank

import (
	"fmt"
	"sort"
	"strings"
)

// ErrKeySetMismatch indicates rankings over different document sets.
// Missing lists keys of the first ranking absent from another; Extra lists
// keys of another ranking unknown to the first. Both are sorted.
type ErrKeySetMismatch struct {
	Missing []string
	Extra   []string
}

func (e *ErrKeySetMismatch) Error() string {
	return fmt.Sprintf("key set mismatch: missing [%s], extra [%s]",
		strings.Join(e.Missing, " "), strings.Join(e.Extra, " "))
}

// Fuse combines rankings of the same documents under different modalities by
// the min rule: the fused distance of a key is the smallest distance any
// ranking assigned it. A key scoring well in one modality scores well
// overall.
//
// Every ranking must cover exactly the same key set; otherwise
// ErrKeySetMismatch reports the difference against the first ranking. The
// fused result is ascending, ties keep the first ranking's order. Inputs are
// left untouched.
func Fuse(lists ...[]Match) ([]Match, error) {
	if len(lists) == 0 {
		return nil, nil
	}

	fused := append([]Match(nil), lists[0]...)

	position := make(map[string]int, len(fused))
	for i, m := range fused {
		position[m.Key] = i
	}

	for _, list := range lists[1:] {
		covered := make(map[string]bool, len(position))

		var extra []string
		for _, m := range list {
			i, ok := position[m.Key]
			if !ok {
				extra = append(extra, m.Key)
				continue
			}

			covered[m.Key] = true
			if m.Distance < fused[i].Distance {
				fused[i].Distance = m.Distance
			}
		}

		if len(extra) > 0 || len(covered) != len(position) {
			var missing []string
			for key := range position {
				if !covered[key] {
					missing = append(missing, key)
				}
			}

			sort.Strings(missing)
			sort.Strings(extra)

			return nil, &ErrKeySetMismatch{Missing: missing, Extra: extra}
		}
	}

	SortStable(fused)

	return fused, nil
}
