package usecase

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	defaultMaxHashtags     = 30
	defaultMaxCaptionRunes = 2200
)

var captionHashtag = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

// NormalizeHashtags turns free-form tags into "#tag" form: lowercased, punctuation
// stripped, deduplicated in order and capped at max. Tags already present in
// caption are skipped.
func NormalizeHashtags(caption string, tags []string, max int) []string {
	if max <= 0 {
		max = defaultMaxHashtags
	}
	seen := map[string]bool{}
	for _, m := range captionHashtag.FindAllStringSubmatch(caption, -1) {
		seen[strings.ToLower(m[1])] = true
	}
	budget := max - len(seen)
	var out []string
	for _, raw := range tags {
		if budget <= 0 {
			break
		}
		tag := cleanTag(raw)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, "#"+tag)
		budget--
	}
	return out
}

func cleanTag(raw string) string {
	raw = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(raw), "#"))
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ComposeCaption appends the normalized hashtag suffix to caption and cuts the
// result to maxRunes. Hashtags are dropped from the end before the text is cut.
func ComposeCaption(caption string, tags []string, maxTags, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = defaultMaxCaptionRunes
	}
	caption = strings.TrimSpace(caption)
	suffix := NormalizeHashtags(caption, tags, maxTags)
	for len(suffix) > 0 {
		composed := joinCaption(caption, suffix)
		if len([]rune(composed)) <= maxRunes {
			return composed
		}
		suffix = suffix[:len(suffix)-1]
	}
	runes := []rune(caption)
	if len(runes) > maxRunes {
		return strings.TrimSpace(string(runes[:maxRunes]))
	}
	return caption
}

func joinCaption(caption string, tags []string) string {
	suffix := strings.Join(tags, " ")
	if caption == "" {
		return suffix
	}
	return caption + "\n\n" + suffix
}
