// Package barcode validates, classifies and generates the barcode strings
// the catalog and scanner intake work with.
package barcode

import (
	"fmt"
	"regexp"
	"strings"
)

var validPattern = regexp.MustCompile(`^[A-Z0-9\-_]{3,50}$`)

var numericPattern = regexp.MustCompile(`^[0-9]{1,14}$`)

// scannerPrefixes are labels some hardware scanners prepend to the payload.
var scannerPrefixes = []string{"CODE:", "BARCODE:", "UPC:", "EAN:"}

// Clean trims and uppercases raw scanner input and strips known prefixes.
func Clean(raw string) string {
	cleaned := strings.ToUpper(strings.TrimSpace(raw))
	for _, prefix := range scannerPrefixes {
		if strings.HasPrefix(cleaned, prefix) {
			cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, prefix))
		}
	}
	return cleaned
}

// IsValid reports whether the cleaned barcode has an acceptable shape:
// alphanumeric plus hyphen/underscore, 3 to 50 characters.
func IsValid(code string) bool {
	return validPattern.MatchString(code)
}

// TypeOf classifies a barcode by length and character set.
func TypeOf(code string) string {
	if code == "" {
		return "UNKNOWN"
	}
	digitsOnly := isDigits(code)
	switch {
	case len(code) == 8 && digitsOnly:
		return "EAN-8"
	case len(code) == 13 && digitsOnly:
		return "EAN-13"
	case len(code) == 12 && digitsOnly:
		return "UPC-A"
	case (len(code) == 6 || len(code) == 7) && digitsOnly:
		return "UPC-E"
	case numericPattern.MatchString(code):
		return "NUMERIC"
	case validPattern.MatchString(code):
		return "ALPHANUMERIC"
	default:
		return "CUSTOM"
	}
}

// ValidateChecksum verifies the weighted mod-10 check digit for EAN-13 and
// UPC-A codes. Other formats carry no checksum and pass.
func ValidateChecksum(code string) bool {
	if code == "" || !isDigits(code) {
		return false
	}

	switch len(code) {
	case 13: // EAN-13: odd positions x1, even positions x3.
		oddSum, evenSum := 0, 0
		for i := 0; i < 12; i++ {
			d := int(code[i] - '0')
			if i%2 == 0 {
				oddSum += d
			} else {
				evenSum += d
			}
		}
		check := (10 - (oddSum+evenSum*3)%10) % 10
		return check == int(code[12]-'0')
	case 12: // UPC-A: odd positions x3, even positions x1.
		oddSum, evenSum := 0, 0
		for i := 0; i < 11; i++ {
			d := int(code[i] - '0')
			if i%2 == 0 {
				oddSum += d
			} else {
				evenSum += d
			}
		}
		check := (10 - (oddSum*3+evenSum)%10) % 10
		return check == int(code[11]-'0')
	}
	return true
}

// GenerateEAN13 completes a 12-digit prefix with its EAN-13 check digit.
func GenerateEAN13(prefix string) (string, error) {
	if len(prefix) != 12 || !isDigits(prefix) {
		return "", fmt.Errorf("ean-13 prefix must be exactly 12 digits")
	}
	oddSum, evenSum := 0, 0
	for i := 0; i < 12; i++ {
		d := int(prefix[i] - '0')
		if i%2 == 0 {
			oddSum += d
		} else {
			evenSum += d
		}
	}
	check := (10 - (oddSum+evenSum*3)%10) % 10
	return fmt.Sprintf("%s%d", prefix, check), nil
}

// FormatForDisplay groups EAN-13 and UPC-A digits the way receipts print them.
func FormatForDisplay(code string) string {
	if code == "" {
		return "N/A"
	}
	if isDigits(code) {
		switch len(code) {
		case 13:
			return fmt.Sprintf("%s %s %s", code[0:1], code[1:7], code[7:13])
		case 12:
			return fmt.Sprintf("%s %s %s %s", code[0:1], code[1:6], code[6:11], code[11:12])
		}
	}
	return code
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
