package domain

import (
	"fmt"
	"strings"
)

// DuplicationPolicy decides how a second completion report of a property is
// reconciled with the stored one.
type DuplicationPolicy string

const (
	PolicyOverwrite DuplicationPolicy = "OVERWRITE"
	PolicyMerge     DuplicationPolicy = "MERGE"
	PolicyAppend    DuplicationPolicy = "APPEND"
)

// ParseDuplicationPolicy accepts the policy name in any case.
func ParseDuplicationPolicy(s string) (DuplicationPolicy, error) {
	switch p := DuplicationPolicy(strings.ToUpper(strings.TrimSpace(s))); p {
	case PolicyOverwrite, PolicyMerge, PolicyAppend:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
}
