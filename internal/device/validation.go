package device

import (
	"fmt"
	"unicode/utf8"
)

// Validation constants.
const (
	// IDLength is the exact length of a cloud device ID.
	IDLength = 24

	maxNameLength = 100
)

// Pre-computed validation set for O(1) lookups.
var validTypes map[Type]struct{}

func init() {
	validTypes = make(map[Type]struct{}, len(AllTypes()))
	for _, t := range AllTypes() {
		validTypes[t] = struct{}{}
	}
}

// ValidateID checks that id has the cloud ID length.
func ValidateID(id string) error {
	if len(id) != IDLength {
		return fmt.Errorf("%w: %q has length %d, want %d", ErrInvalidID, id, len(id), IDLength)
	}
	return nil
}

// ValidateType checks that t is a known device type.
func ValidateType(t Type) error {
	if _, ok := validTypes[t]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidType, t)
	}
	return nil
}

// ValidateName checks the optional display name.
func ValidateName(name string) error {
	if utf8.RuneCountInString(name) > maxNameLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}
