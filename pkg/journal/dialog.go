package journal

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var dialogHeader = regexp.MustCompile(`^>\s*\[!([\w.-]+)\s*]\s*(\S.*)?$`)

// ParseDialog splits content into paragraphs and parses Obsidian-style
// admonition dialog blocks (`> [!dialog] Speaker\n> text`) into Attributed
// fragments; other paragraphs become narration Text fragments (§4.7 step 3).
// alloc mints each fragment's uid; callers pass the tick's seeded allocator
// so the result is deterministic (§8 Determinism).
func ParseDialog(content string, alloc func() uuid.UUID) []Fragment {
	paragraphs := splitParagraphs(content)
	frags := make([]Fragment, 0, len(paragraphs))
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, ">") {
			frags = append(frags, parseDialogParagraph(p, alloc))
			continue
		}
		frags = append(frags, NewText(alloc(), p))
	}
	return frags
}

func splitParagraphs(content string) []string {
	return regexp.MustCompile(`\n{2,}`).Split(strings.TrimSpace(content), -1)
}

func parseDialogParagraph(paragraph string, alloc func() uuid.UUID) Fragment {
	lines := strings.Split(paragraph, "\n")
	header := strings.TrimSpace(lines[0])
	m := dialogHeader.FindStringSubmatch(header)
	if m == nil {
		// Malformed dialog syntax degrades to narration rather than
		// raising; only EFFECTS/BOOKKEEPING failures are fatal (§7).
		return NewText(alloc(), strings.TrimPrefix(header, ">"))
	}
	how := strings.TrimSpace(m[1])
	speaker := strings.TrimSpace(m[2])
	if speaker == "" {
		speaker = "narrator"
	}

	var body []string
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, ">")
		line = strings.TrimSpace(line)
		if line != "" {
			body = append(body, line)
		}
	}
	return NewAttributed(alloc(), speaker, how, strings.Join(body, " "))
}
