// Package isbn validates product identifiers and converts between ISBN-10
// and ISBN-13.
package isbn

import "strconv"

const (
	minLen = 10
	maxLen = 14
)

// Validate reports whether id is all digits with a length between 10 and 14.
func Validate(id string) bool {
	if len(id) < minLen || len(id) > maxLen {
		return false
	}
	return allDigits(id)
}

// To10 converts a 978/979-prefixed ISBN-13 to its ISBN-10 form.
func To10(id13 string) (string, bool) {
	if len(id13) != 13 || !allDigits(id13) {
		return "", false
	}
	if id13[:3] != "978" && id13[:3] != "979" {
		return "", false
	}

	body := id13[3:12]
	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(body[i]-'0') * (10 - i)
	}
	check := (11 - sum%11) % 11
	if check == 10 {
		return body + "X", true
	}
	return body + strconv.Itoa(check), true
}

// To13 converts an ISBN-10 to its 978-prefixed ISBN-13 form. The ISBN-10
// check character is ignored, so an "X" check is accepted.
func To13(id10 string) (string, bool) {
	if len(id10) != 10 || !allDigits(id10[:9]) {
		return "", false
	}

	body := "978" + id10[:9]
	sum := 0
	for i := 0; i < 12; i++ {
		w := 1
		if i%2 == 1 {
			w = 3
		}
		sum += int(body[i]-'0') * w
	}
	return body + strconv.Itoa((10-sum%10)%10), true
}

// Alternates returns id followed by its ISBN-10 equivalent, if one exists.
func Alternates(id string) []string {
	out := []string{id}
	if alt, ok := To10(id); ok && alt != id {
		out = append(out, alt)
	}
	return out
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
