package assets

import "fmt"

// MaxAssetNameLength bounds layout, background and template ids.
const MaxAssetNameLength = 128

// ValidateAssetName checks that an asset name is safe for use as a filename.
// Names are limited to ASCII letters, digits, '-' and '_', so separators,
// dots and traversal sequences are all rejected.
// Returns ErrInvalidAssetName otherwise.
func ValidateAssetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	}
	if len(name) > MaxAssetNameLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidAssetName, MaxAssetNameLength)
	}
	for _, r := range name {
		if !isNameRune(r) {
			return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
		}
	}
	return nil
}

func isNameRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '-' || r == '_'
}
