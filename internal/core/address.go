package core

import (
	"regexp"
	"strings"
)

const (
	maxAddressLength = 254
	maxLocalLength   = 64
	maxLabelLength   = 63
)

var addressPattern = regexp.MustCompile(
	"^[-!#$%&'*+/0-9=?A-Z^_a-z`{|}~](\\.?[-!#$%&'*+/0-9=?A-Z^_a-z`{|}~])*" +
		"@[a-zA-Z0-9](-*\\.?[a-zA-Z0-9])*\\.[a-zA-Z](-?[a-zA-Z0-9])+$",
)

// ValidAddress reports whether address is a syntactically valid bare email
// address. The domain must contain a dot and end in an alphabetic label of
// at least two characters, so "bob@example" is rejected.
func ValidAddress(address string) bool {
	if address == "" || len(address) > maxAddressLength {
		return false
	}
	if !addressPattern.MatchString(address) {
		return false
	}

	at := strings.LastIndexByte(address, '@')
	if at > maxLocalLength {
		return false
	}
	for _, label := range strings.Split(address[at+1:], ".") {
		if len(label) > maxLabelLength {
			return false
		}
	}
	return true
}

// parseAddress trims and validates a single address.
func parseAddress(field, address string) (string, error) {
	address = strings.TrimSpace(address)
	if !ValidAddress(address) {
		return "", newInvalidAddressError(field, address)
	}
	return address, nil
}

// parseAddressList splits a comma-separated list and validates each entry in
// order. An empty element, such as one left by a trailing comma, is invalid.
func parseAddressList(field, addresses string) ([]string, error) {
	parts := strings.Split(addresses, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		address, err := parseAddress(field, part)
		if err != nil {
			return nil, err
		}
		result = append(result, address)
	}
	return result, nil
}
