package errors

import (
	"strings"
	"unicode"
)

// stateFIPS holds the two-digit FIPS codes of the 50 states plus DC.
var stateFIPS = map[string]bool{
	"01": true, "02": true, "04": true, "05": true, "06": true, "08": true,
	"09": true, "10": true, "11": true, "12": true, "13": true, "15": true,
	"16": true, "17": true, "18": true, "19": true, "20": true, "21": true,
	"22": true, "23": true, "24": true, "25": true, "26": true, "27": true,
	"28": true, "29": true, "30": true, "31": true, "32": true, "33": true,
	"34": true, "35": true, "36": true, "37": true, "38": true, "39": true,
	"40": true, "41": true, "42": true, "44": true, "45": true, "46": true,
	"47": true, "48": true, "49": true, "50": true, "51": true, "53": true,
	"54": true, "55": true, "56": true,
}

// ValidateStateFIPS validates a two-digit state FIPS code.
func ValidateStateFIPS(code string) error {
	if code == "" {
		return New(ErrCodeInvalidState, "state FIPS code cannot be empty")
	}

	if !stateFIPS[code] {
		return New(ErrCodeInvalidState, "unknown state FIPS code: %q", code)
	}

	return nil
}

// ValidateGEOID validates a census geographic identifier.
// GEOIDs are hierarchical digit strings: 2 (state), 5 (county),
// 11 (tract), or 15 (block) characters.
func ValidateGEOID(id string) error {
	if id == "" {
		return New(ErrCodeUpstreamData, "GEOID cannot be empty")
	}

	if len(id) > 15 {
		return New(ErrCodeUpstreamData, "GEOID too long (max 15 characters): %q", id)
	}

	for _, r := range id {
		if r < '0' || r > '9' {
			return New(ErrCodeUpstreamData, "GEOID contains non-digit characters: %q", id)
		}
	}

	return nil
}

// ValidateWeight validates a scoring weight, which must lie in [0, 1].
func ValidateWeight(name string, w float64) error {
	if w != w {
		return New(ErrCodeInvalidConfig, "%s weight is NaN", name)
	}

	if w < 0 || w > 1 {
		return New(ErrCodeInvalidConfig, "%s weight must be in [0, 1], got %g", name, w)
	}

	return nil
}

// ValidateHouseSize validates an apportionment house size against the
// number of states; every state must receive at least one seat.
func ValidateHouseSize(houseSize, states int) error {
	if states < 1 {
		return New(ErrCodeInvalidConfig, "apportionment requires at least one state")
	}

	if houseSize < states {
		return New(ErrCodeInvalidConfig, "house size %d is smaller than state count %d", houseSize, states)
	}

	return nil
}

// ValidateSeats validates a target district count.
func ValidateSeats(seats int) error {
	if seats < 1 {
		return New(ErrCodeInvalidConfig, "target seat count must be at least 1, got %d", seats)
	}

	return nil
}

// ValidateResolution validates a census geography resolution.
func ValidateResolution(resolution string) error {
	switch resolution {
	case "tract", "block":
		return nil
	default:
		return New(ErrCodeInvalidResolution, "resolution must be %q or %q, got %q", "tract", "block", resolution)
	}
}

// ValidateElectionYear validates a presidential election year.
func ValidateElectionYear(year int) error {
	if year < 1976 || year > 2024 {
		return New(ErrCodeInvalidConfig, "election year must be between 1976 and 2024, got %d", year)
	}

	if year%4 != 0 {
		return New(ErrCodeInvalidConfig, "%d is not a presidential election year", year)
	}

	return nil
}

// ValidateOutputPath validates a local output file path.
// It rejects empty paths, control characters, and null bytes.
func ValidateOutputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidConfig, "output path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidConfig, "output path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidConfig, "output path contains invalid characters")
		}
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidConfig, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidConfig, "URL must use http or https scheme")
	}

	return nil
}
