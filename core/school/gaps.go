package school

import (
	"fmt"

	"github.com/rainbowkidsrealm/jaja2-sub000/core"
)

// GapError reports a wire record the normalizer refused to turn into an entity
// because a required identity field is missing.
type GapError struct {
	Entity string
	Field  string // eg. "id", "sections[1].id"
	Index  int    // position in the fetched collection, -1 for a single record
}

func (e *GapError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: missing %s", e.Entity, e.Field)
	}
	return fmt.Sprintf("%s #%d: missing %s", e.Entity, e.Index, e.Field)
}

func (e *GapError) Is(target error) bool {
	return target == core.ErrNormalizationGap
}

func gap(entity, field string) *GapError {
	return &GapError{Entity: entity, Field: field, Index: -1}
}

// GapPolicy is the caller's decision on records that cannot be normalized.
type GapPolicy int

const (
	// SkipGaps drops the record and reports its gap.
	SkipGaps GapPolicy = iota
	// FailOnGap fails the whole collection on the first gap.
	FailOnGap
)

func (p GapPolicy) String() string {
	if p == FailOnGap {
		return "fail"
	}
	return "skip"
}

// NormalizeAll normalizes a fetched collection under the policy.
// With SkipGaps it returns the entities that could be built and every gap met;
// with FailOnGap it returns the first gap as error and no entity.
func NormalizeAll[T any](recs []Record, normalize func(Record) (T, error), policy GapPolicy) ([]T, []*GapError, error) {
	items := make([]T, 0, len(recs))
	var gaps []*GapError
	for i, rec := range recs {
		item, err := normalize(rec)
		if err != nil {
			gErr, ok := err.(*GapError)
			if !ok {
				return nil, nil, err
			}
			gErr.Index = i
			if policy == FailOnGap {
				return nil, nil, gErr
			}
			gaps = append(gaps, gErr)
			continue
		}
		items = append(items, item)
	}
	return items, gaps, nil
}
