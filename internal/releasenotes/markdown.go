package releasenotes

import (
	"regexp"
	"strings"
)

const (
	mentionPrefixConstant         = "@"
	emphasisMarkersConstant       = "*_`"
	fenceBacktickMarkerConstant   = "```"
	fenceTildeMarkerConstant      = "~~~"
	fenceIndentLimitConstant      = 3
	lineSeparatorConstant         = "\n"
	releaseTagURLTemplateConstant = "https://github.com/$1/$2/releases/tag/$4"
)

var (
	inlineLinkPattern  = regexp.MustCompile(`\[([^\[\]]*)\]\(([^()\s]+)((?:\s+"[^"]*")?)\)`)
	compareLinkPattern = regexp.MustCompile(`^https://github\.com/([^/\s]+)/([^/\s]+)/compare/([^\s]+?)\.\.\.([^\s/?#]+)$`)
)

// RewriteMarkdown unlinks mentions and points compare links at the release page of the newer
// ref. Fenced code blocks are left untouched.
func RewriteMarkdown(markdown string) string {
	lines := strings.Split(markdown, lineSeparatorConstant)
	activeFence := ""
	for index, line := range lines {
		if marker, isFence := fenceMarker(line); isFence {
			switch {
			case len(activeFence) == 0:
				activeFence = marker
			case marker == activeFence:
				activeFence = ""
			}
			continue
		}
		if len(activeFence) > 0 {
			continue
		}
		lines[index] = inlineLinkPattern.ReplaceAllStringFunc(line, rewriteLink)
	}
	return strings.Join(lines, lineSeparatorConstant)
}

func rewriteLink(link string) string {
	submatches := inlineLinkPattern.FindStringSubmatch(link)
	linkText, linkTarget, linkTitle := submatches[1], submatches[2], submatches[3]

	if strings.HasPrefix(strings.TrimLeft(linkText, emphasisMarkersConstant), mentionPrefixConstant) {
		return linkText
	}
	if compareLinkPattern.MatchString(linkTarget) {
		return "[" + linkText + "](" + compareLinkPattern.ReplaceAllString(linkTarget, releaseTagURLTemplateConstant) + linkTitle + ")"
	}
	return link
}

func fenceMarker(line string) (string, bool) {
	trimmedLine := strings.TrimLeft(line, " ")
	if len(line)-len(trimmedLine) > fenceIndentLimitConstant {
		return "", false
	}
	for _, marker := range []string{fenceBacktickMarkerConstant, fenceTildeMarkerConstant} {
		if strings.HasPrefix(trimmedLine, marker) {
			return marker, true
		}
	}
	return "", false
}
