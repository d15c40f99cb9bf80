package jobs

import (
	"fmt"

	"ceiba/internal/domain"
)

// Resolve reconciles a repeated completion report with the stored property
// fields and returns the fields to persist.
//
// OVERWRITE keeps the incoming fields. MERGE keeps the incoming fields too, but
// data becomes the union of both attribute maps with incoming keys winning.
// APPEND is not implemented yet.
func Resolve(policy domain.DuplicationPolicy, incoming, existing domain.PropertyFields) (domain.PropertyFields, error) {
	switch policy {
	case domain.PolicyOverwrite:
		return incoming, nil

	case domain.PolicyMerge:
		out := incoming
		if incoming.Data == nil {
			return out, nil
		}
		var old domain.AttributeMap
		if existing.Data != nil {
			old = *existing.Data
		}
		merged, err := domain.MergeAttributeMaps(old, *incoming.Data)
		if err != nil {
			return domain.PropertyFields{}, fmt.Errorf("merge data: %w", err)
		}
		out.Data = &merged
		return out, nil

	case domain.PolicyAppend:
		return domain.PropertyFields{}, fmt.Errorf("%s duplication policy: %w", policy, domain.ErrNotImplemented)
	}
	return domain.PropertyFields{}, fmt.Errorf("%w: %q", domain.ErrInvalidPolicy, policy)
}
