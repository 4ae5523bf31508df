package detector

import "image"

// overlapProportion returns the intersection-over-union of two boxes,
// in [0,1].
func overlapProportion(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	interArea := inter.Dx() * inter.Dy()
	union := a.Dx()*a.Dy() + b.Dx()*b.Dy() - interArea
	if union <= 0 {
		return 0
	}
	return float64(interArea) / float64(union)
}

// suppressOverlapping drops candidates of the same class whose boxes
// overlap another candidate above threshold, keeping the one with the
// higher confidence. Candidates of different classes never suppress
// each other.
func suppressOverlapping(candidates []Candidate, threshold float64) []Candidate {
	dropped := make([]bool, len(candidates))
	for i := 0; i < len(candidates); i++ {
		if dropped[i] {
			continue
		}
		for j := i + 1; j < len(candidates); j++ {
			if dropped[j] || candidates[i].Class != candidates[j].Class {
				continue
			}
			if overlapProportion(candidates[i].Box, candidates[j].Box) <= threshold {
				continue
			}
			if candidates[i].Confidence >= candidates[j].Confidence {
				dropped[j] = true
			} else {
				dropped[i] = true
				break
			}
		}
	}

	out := make([]Candidate, 0, len(candidates))
	for i, c := range candidates {
		if !dropped[i] {
			out = append(out, c)
		}
	}
	return out
}

// FilterNonOverlapping removes detections from main that have no
// same-class counterpart in check overlapping by at least threshold.
// It is used to reconcile detections from two sources, such as an RGB
// frame and a depth frame of the same scene. Each check detection is
// matched to at most one main detection; when several overlap, the best
// overlap wins.
//
// If classes is non-nil, only detections of the listed classes are
// subject to filtering; others are kept unconditionally.
func FilterNonOverlapping(main, check []Detection, threshold float64, classes []string) []Detection {
	filterable := func(label string) bool {
		if classes == nil {
			return true
		}
		for _, c := range classes {
			if c == label {
				return true
			}
		}
		return false
	}

	// Index the check set by label. Matched entries are consumed.
	checkByLabel := make(map[string][]int)
	for i, d := range check {
		checkByLabel[d.Label] = append(checkByLabel[d.Label], i)
	}

	out := make([]Detection, 0, len(main))
	for _, m := range main {
		if !filterable(m.Label) {
			out = append(out, m)
			continue
		}

		pool := checkByLabel[m.Label]
		best := -1
		bestOverlap := 0.0
		for pi, ci := range pool {
			overlap := overlapProportion(m.Box, check[ci].Box)
			if overlap >= threshold && overlap > bestOverlap {
				best = pi
				bestOverlap = overlap
			}
		}
		if best < 0 {
			continue
		}
		checkByLabel[m.Label] = append(pool[:best], pool[best+1:]...)
		out = append(out, m)
	}
	return out
}
