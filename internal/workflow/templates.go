package workflow

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/davidahmann/specgate/pkg/types"
)

const (
	metaProjectName = "project_name"
	metaDocType     = "doc_type"
	unknownProject  = "Unknown"
	defaultDocType  = "설계서"
)

var bracketTitle = regexp.MustCompile(`^\[([^\]]+)\]\s*(?:\[([^\]]+)\]|(.+?))?\s*설계서\s*$`)

// TicketDraft is the rendered ticket ready for the tracker.
type TicketDraft struct {
	Title  string
	Body   string
	Labels []string
}

// ProjectAndDocType resolves the project name and document type from
// metadata, falling back to a "[Project] Type 설계서" title.
func ProjectAndDocType(doc types.Document) (string, string) {
	project := strings.TrimSpace(doc.Metadata[metaProjectName])
	docType := strings.TrimSpace(doc.Metadata[metaDocType])

	title := strings.TrimSpace(strings.TrimPrefix(types.TitleOrFirstHeading(doc), "#"))
	if m := bracketTitle.FindStringSubmatch(title); m != nil {
		if project == "" {
			project = strings.TrimSpace(m[1])
		}
		if docType == "" {
			docType = strings.TrimSpace(m[2] + m[3])
		}
	}

	if project == "" {
		project = unknownProject
		if title != "" {
			project = title
		}
	}
	if docType == "" {
		docType = defaultDocType
	}
	return project, docType
}

func renderTicket(action types.NextAction, doc types.Document, result types.QualityResult, reviewLabels, fixLabels []string) TicketDraft {
	project, docType := ProjectAndDocType(doc)

	var b strings.Builder
	var title string
	var labels []string
	switch action {
	case types.ActionCreateMandatoryFixTicket:
		title = fmt.Sprintf("[필수 수정] %s %s - 품질점수 %d점", project, docType, result.Score)
		labels = fixLabels
		b.WriteString("문서 품질이 기준 미달입니다. 아래 항목을 수정해주세요.\n\n")
		fmt.Fprintf(&b, "문서 품질 점수: %d\n", result.Score)
	default:
		title = fmt.Sprintf("[HITL 검토] %s %s - 품질점수 %d점", project, docType, result.Score)
		labels = reviewLabels
		fmt.Fprintf(&b, "문서 품질 점수: %d\n\n", result.Score)
	}

	source := doc.URL
	if source == "" {
		source = "-"
	}
	fmt.Fprintf(&b, "문서: %s\n\n", source)

	b.WriteString("## 위반사항\n")
	for _, v := range result.Violations {
		fmt.Fprintf(&b, "- %s - %s\n", v.Type, v.Message)
	}
	b.WriteString("\n## 개선 제안\n")
	for _, s := range result.Suggestions {
		fmt.Fprintf(&b, "- %s\n", s)
	}

	return TicketDraft{
		Title:  title,
		Body:   b.String(),
		Labels: append([]string(nil), labels...),
	}
}
