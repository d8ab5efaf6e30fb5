// Package address parses free-text postal addresses into components and
// resolves them to coordinates.
package address

import "strings"

// Components are the structured parts of a postal address.
type Components struct {
	Street  string
	City    string
	State   string
	ZipCode string
}

// Parse splits a free-text address into components using comma-separated
// segments. With four or more segments the street is the first segment, the
// city the third from last, and the second from last holds state and zip
// separated by whitespace. Shorter inputs fill street and city positionally,
// with the third segment again split into state and zip. Parse never fails;
// missing components are returned empty.
func Parse(fullAddress string) Components {

	parts := strings.Split(fullAddress, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	var c Components
	if len(parts) >= 4 {
		c.Street = parts[0]
		c.City = parts[len(parts)-3]
		c.State, c.ZipCode = splitStateZip(parts[len(parts)-2])
		return c
	}

	if len(parts) > 0 {
		c.Street = parts[0]
	}
	if len(parts) > 1 {
		c.City = parts[1]
	}
	if len(parts) > 2 {
		c.State, c.ZipCode = splitStateZip(parts[2])
	}
	return c
}

// splitStateZip splits a "state zip" address segment on whitespace. The
// state is the first token and the zip the last, so a multi-word state
// keeps its trailing postal code. A single token is a state alone.
func splitStateZip(segment string) (state, zip string) {
	tokens := strings.Fields(segment)
	if len(tokens) > 0 {
		state = tokens[0]
	}
	if len(tokens) > 1 {
		zip = tokens[len(tokens)-1]
	}
	return state, zip
}
