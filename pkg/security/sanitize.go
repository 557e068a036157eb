// Package security sanitizes untrusted HTML before it is rendered.
package security

import (
	"html/template"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer provides HTML and text sanitization.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// SanitizerConfig configures the sanitizer.
type SanitizerConfig struct {
	// AllowedTags is a list of HTML tags to allow
	AllowedTags []string

	// AllowedAttrs maps tags to allowed attributes
	AllowedAttrs map[string][]string

	// AllowURLs allows http, https and mailto links
	AllowURLs bool
}

// DefaultSanitizerConfig allows the inline formatting used in analysis text.
func DefaultSanitizerConfig() SanitizerConfig {
	return SanitizerConfig{
		AllowedTags: []string{
			"p", "br", "b", "i", "u", "strong", "em", "mark",
			"h1", "h2", "h3", "h4", "h5", "h6",
			"ul", "ol", "li", "hr",
			"blockquote", "pre", "code",
			"a", "span", "div",
		},
		AllowedAttrs: map[string][]string{
			"a":    {"href", "title"},
			"span": {"class"},
			"div":  {"class"},
		},
		AllowURLs: true,
	}
}

// NewSanitizer creates a new sanitizer.
func NewSanitizer(config SanitizerConfig) *Sanitizer {
	p := bluemonday.NewPolicy()

	tags := make([]string, 0, len(config.AllowedTags))
	for _, tag := range config.AllowedTags {
		tags = append(tags, strings.ToLower(tag))
	}
	if len(tags) > 0 {
		p.AllowElements(tags...)
	}

	for tag, attrs := range config.AllowedAttrs {
		for _, attr := range attrs {
			attr = strings.ToLower(attr)
			if attr == "href" && !config.AllowURLs {
				continue
			}
			p.AllowAttrs(attr).OnElements(strings.ToLower(tag))
		}
	}

	if config.AllowURLs {
		p.AllowURLSchemes("http", "https", "mailto")
		p.RequireParseableURLs(true)
		p.RequireNoFollowOnLinks(true)
		p.AddTargetBlankToFullyQualifiedLinks(true)
	}

	return &Sanitizer{policy: p}
}

var defaultSanitizer = NewSanitizer(DefaultSanitizerConfig())

// SanitizeHTML removes dangerous HTML content.
func (s *Sanitizer) SanitizeHTML(input string) string {
	return s.policy.Sanitize(input)
}

// SafeHTML sanitizes input and marks it safe for templates.
func (s *Sanitizer) SafeHTML(input string) template.HTML {
	return template.HTML(s.policy.Sanitize(input))
}

// SanitizeHTML sanitizes input with the default policy.
func SanitizeHTML(input string) string {
	return defaultSanitizer.SanitizeHTML(input)
}

// TruncateText truncates text to a maximum length, adding ellipsis.
func TruncateText(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// NormalizeWhitespace normalizes whitespace in a string.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
