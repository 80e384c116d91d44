package plan

import (
	"errors"
	"fmt"

	"stakelens/internal/chain"
)

// ErrSliceMismatch means declared group sizes do not add up to the result
// count. It is a plan/assembler bug, never a runtime condition.
var ErrSliceMismatch = errors.New("plan: group sizes do not match result count")

// Slice partitions results into consecutive sub-slices of the given sizes.
// Concatenating the output reproduces results exactly.
func Slice(results []chain.Result, sizes []int) ([][]chain.Result, error) {
	total := 0
	for i, n := range sizes {
		if n < 0 {
			return nil, fmt.Errorf("%w: negative size %d at group %d", ErrSliceMismatch, n, i)
		}
		total += n
	}
	if total != len(results) {
		return nil, fmt.Errorf("%w: declared %d, got %d", ErrSliceMismatch, total, len(results))
	}

	out := make([][]chain.Result, len(sizes))
	offset := 0
	for i, n := range sizes {
		out[i] = results[offset : offset+n : offset+n]
		offset += n
	}
	return out, nil
}

// Split slices results by the plan's groups and keys them by group name.
func (p *Plan) Split(results []chain.Result) (map[GroupName][]chain.Result, error) {
	parts, err := Slice(results, p.Sizes())
	if err != nil {
		return nil, err
	}
	out := make(map[GroupName][]chain.Result, len(parts))
	for i, g := range p.Groups {
		out[g.Name] = parts[i]
	}
	return out, nil
}
