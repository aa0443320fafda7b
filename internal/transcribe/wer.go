package transcribe

import (
	"strings"
	"unicode"
)

// WERResult holds detailed word error rate results.
type WERResult struct {
	WER           float64 // (S + I + D) / RefWords
	Substitutions int
	Insertions    int
	Deletions     int
	RefWords      int
}

// editCell is one alignment cell: total cost plus the operations behind it.
type editCell struct {
	subs, ins, dels int
}

func (c editCell) cost() int { return c.subs + c.ins + c.dels }

// ComputeWER scores hypothesis against reference at the word level after
// lowercasing and stripping punctuation. An empty reference scores zero.
func ComputeWER(reference, hypothesis string) WERResult {
	ref := normalizeWords(reference)
	hyp := normalizeWords(hypothesis)
	if len(ref) == 0 {
		return WERResult{}
	}

	// prev and row hold alignment cells for ref[:i-1] and ref[:i] against
	// every prefix of hyp.
	prev := make([]editCell, len(hyp)+1)
	row := make([]editCell, len(hyp)+1)
	for j := range prev {
		prev[j] = editCell{ins: j}
	}

	for i := 1; i <= len(ref); i++ {
		row[0] = editCell{dels: i}
		for j := 1; j <= len(hyp); j++ {
			if ref[i-1] == hyp[j-1] {
				row[j] = prev[j-1]
				continue
			}
			best := prev[j-1]
			best.subs++
			if del := prev[j]; del.cost()+1 < best.cost() {
				best = del
				best.dels++
			}
			if ins := row[j-1]; ins.cost()+1 < best.cost() {
				best = ins
				best.ins++
			}
			row[j] = best
		}
		prev, row = row, prev
	}

	end := prev[len(hyp)]
	return WERResult{
		WER:           float64(end.cost()) / float64(len(ref)),
		Substitutions: end.subs,
		Insertions:    end.ins,
		Deletions:     end.dels,
		RefWords:      len(ref),
	}
}

func normalizeWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '\'')
	})
}
