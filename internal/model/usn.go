package model

import (
	"fmt"
	"strconv"
)

// USNs are 10 characters: a 7-character alphanumeric prefix shared by
// the cohort and a 3-digit zero-padded decimal suffix.
const (
	USNLength       = 10
	usnPrefixLength = 7
)

// USNPrefix returns the literal 7-character prefix of a USN.
func USNPrefix(usn string) string {
	if len(usn) < usnPrefixLength {
		return usn
	}
	return usn[:usnPrefixLength]
}

// USNSuffix parses the trailing 3-digit suffix as an integer.
func USNSuffix(usn string) (int, error) {
	if len(usn) != USNLength {
		return 0, fmt.Errorf("usn %q is not %d characters", usn, USNLength)
	}
	n, err := strconv.Atoi(usn[usnPrefixLength:])
	if err != nil {
		return 0, fmt.Errorf("usn %q has non-numeric suffix: %w", usn, err)
	}
	return n, nil
}

// FormatUSN assembles a USN from a prefix and numeric suffix. The
// suffix is always zero-padded to three digits.
func FormatUSN(prefix string, n int) string {
	return fmt.Sprintf("%s%03d", prefix, n)
}

// USNRange resolves the inclusive numeric suffix range of a start/end
// USN pair, plus the shared prefix.
func USNRange(startUSN, endUSN string) (prefix string, lo, hi int, err error) {
	lo, err = USNSuffix(startUSN)
	if err != nil {
		return "", 0, 0, err
	}
	hi, err = USNSuffix(endUSN)
	if err != nil {
		return "", 0, 0, err
	}
	if hi < lo {
		return "", 0, 0, fmt.Errorf("usn range %q..%q is inverted", startUSN, endUSN)
	}
	return USNPrefix(startUSN), lo, hi, nil
}
