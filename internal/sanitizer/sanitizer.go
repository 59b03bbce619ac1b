// Package sanitizer turns rich-text course fields into plain text before they are persisted.
//
// StripMarkup never fails: the bluemonday strict policy does the stripping, and if it ever
// panics the regex stripper with a fixed entity table takes over.
package sanitizer

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/noah-isme/coursekeep-go/internal/models"
)

// maxPasses bounds the fixpoint loop. Each pass either shrinks the text or leaves it unchanged.
const maxPasses = 8

var (
	blockBreakPattern  = regexp.MustCompile(`(?i)<br\s*/?>|</(?:p|div|li|h[1-6]|blockquote|pre|tr|section|article|header|footer|ul|ol|table)\s*>`)
	scriptStylePattern = regexp.MustCompile(`(?is)<script\b.*?</script\s*>|<style\b.*?</style\s*>`)
	tagPattern         = regexp.MustCompile(`<[^>]*>`)
	attributePattern   = regexp.MustCompile(`(?i)\s*\b(?:style|class|id)\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`)
	horizontalSpace    = regexp.MustCompile(`[^\S\n]+`)
	nestedAmpPattern   = regexp.MustCompile(`(?i)&(?:(?:amp|#0*38|#x0*26);)+`)
)

var markupChars = strings.NewReplacer("&", "", "<", "", ">", "")

var fallbackEntities = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
)

var strictPolicy = bluemonday.StrictPolicy()

// primaryStrip is swapped in tests to exercise the fallback path.
var primaryStrip = func(input string) string {
	return html.UnescapeString(strictPolicy.Sanitize(input))
}

// StripMarkup removes tags, presentation attributes and entities from input and normalises whitespace.
// StripMarkup(StripMarkup(s)) == StripMarkup(s) for any s.
func StripMarkup(input string) string {
	if input == "" {
		return ""
	}

	current, stable := settle(input)
	if stable {
		return current
	}

	// Encodings nested deeper than maxPasses: collapse repeated ampersand escapes, and if
	// that is still not enough drop the characters that can start markup.
	if current, stable = settle(nestedAmpPattern.ReplaceAllString(current, "&")); stable {
		return current
	}
	current, _ = settle(markupChars.Replace(current))
	return current
}

// settle applies stripOnce until the text stops changing. It reports false when maxPasses ran out first.
func settle(input string) (string, bool) {
	current := input
	for pass := 0; pass < maxPasses; pass++ {
		next := stripOnce(current)
		if next == current {
			return next, true
		}
		current = next
	}
	return current, false
}

func stripOnce(input string) (result string) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = fallbackStrip(input)
		}
	}()

	text := blockBreakPattern.ReplaceAllString(input, "\n")
	text = primaryStrip(text)
	text = attributePattern.ReplaceAllString(text, "")
	return normalizeWhitespace(text)
}

func fallbackStrip(input string) string {
	text := scriptStylePattern.ReplaceAllString(input, "")
	text = blockBreakPattern.ReplaceAllString(text, "\n")
	text = tagPattern.ReplaceAllString(text, "")
	text = fallbackEntities.Replace(text)
	text = attributePattern.ReplaceAllString(text, "")
	return normalizeWhitespace(text)
}

func normalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\u00a0", " ")

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	previousBlank := true
	for _, line := range lines {
		line = strings.TrimSpace(horizontalSpace.ReplaceAllString(line, " "))
		if line == "" {
			if previousBlank {
				continue
			}
			previousBlank = true
			kept = append(kept, "")
			continue
		}
		previousBlank = false
		kept = append(kept, line)
	}

	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// SanitizeCourse returns a deep copy of course with every rich-text field stripped.
func SanitizeCourse(course models.Course) models.Course {
	clean := course.Clone()
	clean.Description = StripMarkup(clean.Description)
	for i := range clean.Sections {
		section := &clean.Sections[i]
		section.Description = StripMarkup(section.Description)
		for j := range section.Lessons {
			lesson := &section.Lessons[j]
			lesson.Content = StripMarkup(lesson.Content)
			lesson.Description = StripMarkup(lesson.Description)
		}
	}
	return clean
}

// SanitizeCourses maps SanitizeCourse over courses. A nil input yields an empty collection.
func SanitizeCourses(courses []models.Course) []models.Course {
	cleaned := make([]models.Course, 0, len(courses))
	for _, course := range courses {
		cleaned = append(cleaned, SanitizeCourse(course))
	}
	return cleaned
}
