package types

import "strings"

// Document is the read-only input handed to the engine by the acquisition and
// conversion collaborators. Title, when set, takes precedence over any title
// embedded in Text.
type Document struct {
	Text     string            `json:"text"`
	Title    string            `json:"title,omitempty"`
	URL      string            `json:"url,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// TitleOrFirstHeading returns the document title, or the first markdown
// heading when no title was supplied.
func TitleOrFirstHeading(doc Document) string {
	if t := strings.TrimSpace(doc.Title); t != "" {
		return t
	}
	for _, line := range strings.Split(doc.Text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}

type CheckDepth string

const (
	DepthBasic     CheckDepth = "basic"
	DepthStructure CheckDepth = "structure"
	DepthFull      CheckDepth = "full"
)

// Includes reports whether d runs every check that other runs.
func (d CheckDepth) Includes(other CheckDepth) bool {
	return d.rank() >= other.rank() && other.rank() > 0
}

func (d CheckDepth) Valid() bool {
	return d.rank() > 0
}

func (d CheckDepth) rank() int {
	switch d {
	case DepthBasic:
		return 1
	case DepthStructure:
		return 2
	case DepthFull:
		return 3
	default:
		return 0
	}
}

// ParseCheckDepth accepts the three depth names; an empty string means full.
func ParseCheckDepth(s string) (CheckDepth, bool) {
	if s == "" {
		return DepthFull, true
	}
	d := CheckDepth(s)
	return d, d.Valid()
}
