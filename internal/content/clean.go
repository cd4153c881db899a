package content

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	wrapQuotes   = regexp.MustCompile(`^["']|["']$`)
	tweetPrefix  = regexp.MustCompile(`^ציוץ:\s*`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// CleanText strips wrapper noise from model output and truncates it to maxLength characters.
func CleanText(text string, maxLength int) string {
	cleaned := strings.TrimSpace(text)
	cleaned = wrapQuotes.ReplaceAllString(cleaned, "")
	cleaned = tweetPrefix.ReplaceAllString(cleaned, "")
	cleaned = whitespaceRe.ReplaceAllString(cleaned, " ")

	if maxLength > 3 && utf8.RuneCountInString(cleaned) > maxLength {
		runes := []rune(cleaned)
		cleaned = string(runes[:maxLength-3]) + "..."
	}
	return cleaned
}
