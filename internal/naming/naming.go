// Package naming provides shared string case conversion utilities.
package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// commonInitialisms are upper-cased whole by ToGoName, following the Go
// convention for identifiers (ID, URL, HTTP, ...).
var commonInitialisms = map[string]bool{
	"API": true, "ASCII": true, "CPU": true, "CSS": true, "DNS": true,
	"EOF": true, "GUID": true, "HTML": true, "HTTP": true, "HTTPS": true,
	"ID": true, "IP": true, "JSON": true, "JWT": true,
	"OS": true, "SHA": true, "SQL": true, "SSH": true, "TCP": true,
	"TLS": true, "TTL": true, "UI": true, "UID": true, "URI": true,
	"URL": true, "UTF8": true, "UUID": true, "VM": true, "XML": true,
}

// Words splits s into words. Any rune that is not a letter or digit
// separates words, as do lower-to-upper transitions ("userId") and the end
// of an upper-case run followed by a lower-case letter ("APIClient").
// Example: "get_userById" -> ["get", "user", "By", "Id"]
func Words(s string) []string {
	var words []string
	runes := []rune(s)
	start := -1
	flush := func(end int) {
		if start >= 0 && end > start {
			words = append(words, string(runes[start:end]))
		}
		start = -1
	}

	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
			continue
		}
		prev := runes[i-1]
		if unicode.IsUpper(r) {
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				flush(i)
				start = i
				continue
			}
			if unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
				flush(i)
				start = i
			}
		}
	}
	flush(len(runes))
	return words
}

// ToPascalCase converts a string to PascalCase. Letters inside a word keep
// their case.
// Example: "user_profile" -> "UserProfile"
// Example: "api-client" -> "ApiClient"
func ToPascalCase(s string) string {
	caser := cases.Title(language.Und, cases.NoLower)
	var result strings.Builder
	for _, w := range Words(s) {
		result.WriteString(caser.String(w))
	}
	return result.String()
}

// ToCamelCase converts a string to camelCase. The first word is lower-cased
// entirely so leading initialisms read naturally.
// Example: "user_profile" -> "userProfile"
// Example: "APIClient" -> "apiClient"
func ToCamelCase(s string) string {
	words := Words(s)
	if len(words) == 0 {
		return ""
	}
	caser := cases.Title(language.Und, cases.NoLower)
	var result strings.Builder
	result.WriteString(strings.ToLower(words[0]))
	for _, w := range words[1:] {
		result.WriteString(caser.String(w))
	}
	return result.String()
}

// ToGoName converts s into an exported Go identifier, upper-casing common
// initialisms and prefixing names that would start with a digit.
// Example: "get_user_by_id" -> "GetUserByID"
// Example: "repos/get-content" -> "ReposGetContent"
func ToGoName(s string) string {
	caser := cases.Title(language.Und, cases.NoLower)
	var result strings.Builder
	for _, w := range Words(s) {
		if upper := strings.ToUpper(w); commonInitialisms[upper] {
			result.WriteString(upper)
			continue
		}
		result.WriteString(caser.String(w))
	}
	name := result.String()
	if name == "" {
		return ""
	}
	if r := []rune(name)[0]; unicode.IsDigit(r) {
		name = "X" + name
	}
	return name
}

// ToSnakeCase converts a string to snake_case.
// Example: "UserProfile" -> "user_profile"
// Example: "APIClient" -> "api_client"
func ToSnakeCase(s string) string {
	return strings.ToLower(strings.Join(Words(s), "_"))
}

// ToKebabCase converts a string to kebab-case.
// Example: "UserProfile" -> "user-profile"
func ToKebabCase(s string) string {
	return strings.ToLower(strings.Join(Words(s), "-"))
}

// ToEnvName builds an environment variable name from a prefix and a key.
// Example: ("EXAMPLE", "client-secret") -> "EXAMPLE_CLIENT_SECRET"
func ToEnvName(prefix, key string) string {
	name := strings.ToUpper(ToSnakeCase(key))
	prefix = strings.ToUpper(strings.TrimRight(prefix, "_"))
	if prefix == "" {
		return name
	}
	if name == "" {
		return prefix
	}
	return prefix + "_" + name
}

// ToTitleCase converts the first letter to uppercase.
// Example: "hello" -> "Hello"
func ToTitleCase(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
