package journal

import (
	"fmt"

	"github.com/google/uuid"
)

// Format discriminates how Fragment.Content should be interpreted.
type Format string

const (
	FormatPlain    Format = "plain"
	FormatMarkdown Format = "markdown"
	FormatURL      Format = "url"
	FormatData     Format = "data"
)

// Variant discriminates the fragment taxonomy of §4.7.
type Variant string

const (
	VariantText       Variant = "Text"
	VariantAttributed Variant = "Attributed"
	VariantMedia      Variant = "Media"
	VariantKeyValue   Variant = "KeyValue"
	VariantGroup      Variant = "Group"
	VariantChoice     Variant = "Choice"
	VariantUpdate     Variant = "Update"
	VariantConcept    Variant = "Concept"
)

// Fragment is one typed unit of journal output. Every variant carries the
// common envelope fields; variant-specific data lives in the pointer
// fields below (nil unless the corresponding Variant is set).
type Fragment struct {
	UID     uuid.UUID `json:"uid"`
	Label   string    `json:"label,omitempty"`
	Variant Variant   `json:"variant"`
	Content string    `json:"content"`
	Format  Format    `json:"format"`

	PresentationHints map[string]string `json:"presentation_hints,omitempty"`

	// Attributed
	Speaker string `json:"speaker,omitempty"`
	How     string `json:"how,omitempty"`

	// Media
	URL   string `json:"url,omitempty"`
	Scope string `json:"scope,omitempty"`

	// Group
	Children []uuid.UUID `json:"children,omitempty"`
	GroupID  *uuid.UUID  `json:"group_id,omitempty"`

	// Choice
	TargetEdgeUID *uuid.UUID `json:"target_edge_uid,omitempty"`

	// Update
	RefID *uuid.UUID `json:"ref_id,omitempty"`
}

// NewText builds a plain narration fragment. uid is minted by the caller's
// tick-scoped allocator so JOURNAL composition stays a pure function of
// (graph, choice, seed) — see pkg/effect.Buffer.AllocFragmentUID (§8
// Determinism).
func NewText(uid uuid.UUID, content string) Fragment {
	return Fragment{UID: uid, Variant: VariantText, Content: content, Format: FormatPlain}
}

// NewAttributed builds a speaker-attributed dialog fragment.
func NewAttributed(uid uuid.UUID, speaker, how, content string) Fragment {
	return Fragment{UID: uid, Variant: VariantAttributed, Speaker: speaker, How: how, Content: content, Format: FormatPlain}
}

// NewChoice builds a fragment advertising an available Action edge.
func NewChoice(uid uuid.UUID, label string, edgeUID uuid.UUID) Fragment {
	return Fragment{UID: uid, Variant: VariantChoice, Content: label, TargetEdgeUID: &edgeUID, Format: FormatPlain}
}

// NewMedia builds a media reference fragment with a resolved URL and scope.
func NewMedia(uid uuid.UUID, url, scope string) Fragment {
	return Fragment{UID: uid, Variant: VariantMedia, URL: url, Scope: scope, Format: FormatURL}
}

// NewDiagnostic builds the degraded-output fragment JOURNAL appends when a
// handler errors mid-composition (§7 "Errors in JOURNAL degrade gracefully").
func NewDiagnostic(uid uuid.UUID, message string) Fragment {
	return Fragment{UID: uid, Variant: VariantKeyValue, Label: "diagnostic", Content: message, Format: FormatPlain}
}

// Validate checks a fragment is internally well-formed.
func (f *Fragment) Validate() error {
	if f.UID == uuid.Nil {
		return fmt.Errorf("fragment: uid cannot be nil")
	}
	switch f.Variant {
	case VariantAttributed:
		if f.Speaker == "" {
			return fmt.Errorf("fragment %s: Attributed requires a speaker", f.UID)
		}
	case VariantMedia:
		if f.URL == "" {
			return fmt.Errorf("fragment %s: Media requires a url", f.UID)
		}
	case VariantChoice:
		if f.TargetEdgeUID == nil {
			return fmt.Errorf("fragment %s: Choice requires a target edge uid", f.UID)
		}
	}
	return nil
}

// String returns a human-readable representation of the Fragment.
func (f *Fragment) String() string {
	return fmt.Sprintf("Fragment[%s %q]", f.Variant, f.Content)
}
