package proto

import "strings"

const tubeNameSymbols = "-+/;.$_()"

// ValidateTubeName checks a tube name before it is put on the wire.
// Names are 1-200 bytes of letters, digits and "-+/;.$_()", not starting with '-'.
func ValidateTubeName(name string) error {
	if name == "" {
		return &InvalidTubeNameError{Name: name, Message: "name is empty"}
	}

	if len(name) > MaxTubeNameLength {
		return &InvalidTubeNameError{Name: name, Message: "name exceeds maximum length of 200 bytes"}
	}

	if name[0] == '-' {
		return &InvalidTubeNameError{Name: name, Message: "name starts with a hyphen"}
	}

	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		case strings.IndexByte(tubeNameSymbols, c) >= 0:
		default:
			return &InvalidTubeNameError{Name: name, Message: "name contains invalid character"}
		}
	}

	return nil
}
