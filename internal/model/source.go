package model

type SourceKind int

const (
	SourceRemote SourceKind = iota // Origin is an http/https URL
	SourceInline                   // Origin is pasted link text
	SourceFile                     // Origin is a local file path
)

func (k SourceKind) String() string {
	switch k {
	case SourceRemote:
		return "remote"
	case SourceInline:
		return "inline"
	case SourceFile:
		return "file"
	default:
		return "unknown"
	}
}

// SubscriptionSource is one user-supplied input. It is resolved once per
// generation run and never persisted by the core.
type SubscriptionSource struct {
	Origin string
	Kind   SourceKind

	// Tag identifies the source in node records and the run report.
	// Empty means "derive from Origin".
	Tag string
}

// EffectiveTag returns Tag, falling back to Origin (truncated for inline
// text) so every node carries a usable source identifier.
func (s SubscriptionSource) EffectiveTag() string {
	if s.Tag != "" {
		return s.Tag
	}
	if s.Kind == SourceInline {
		if len(s.Origin) > 40 {
			return "inline:" + s.Origin[:40]
		}
		return "inline:" + s.Origin
	}
	return s.Origin
}
