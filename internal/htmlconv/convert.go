// Package htmlconv turns wiki storage HTML into the markdown-like text the
// lint engine reads.
package htmlconv

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	xhtml "golang.org/x/net/html"
)

var (
	cdataSection = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)
	blankRuns    = regexp.MustCompile(`\n{3,}`)
)

var knownLanguages = map[string]bool{
	"python": true, "javascript": true, "json": true, "yaml": true, "xml": true,
	"sql": true, "bash": true, "shell": true, "go": true, "java": true,
}

type Result struct {
	Text       string
	Title      string
	Headings   int
	CodeBlocks int
	Tables     int
}

// Convert parses storage-format HTML and renders headings, paragraphs,
// lists, tables, quotes and code (including code macros) as markdown.
func Convert(source string) (Result, error) {
	source = cdataSection.ReplaceAllStringFunc(source, func(m string) string {
		return html.EscapeString(cdataSection.FindStringSubmatch(m)[1])
	})

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return Result{}, fmt.Errorf("parse html: %w", err)
	}

	c := &converter{}
	var blocks []string
	doc.Find("body").Contents().Each(func(_ int, s *goquery.Selection) {
		blocks = append(blocks, c.block(s)...)
	})

	text := strings.Join(blocks, "\n\n")
	text = strings.TrimSpace(blankRuns.ReplaceAllString(text, "\n\n"))

	return Result{
		Text:       text,
		Title:      strings.TrimSpace(doc.Find("title").First().Text()),
		Headings:   c.headings,
		CodeBlocks: c.codeBlocks,
		Tables:     c.tables,
	}, nil
}

type converter struct {
	headings   int
	codeBlocks int
	tables     int
}

func (c *converter) block(s *goquery.Selection) []string {
	node := s.Get(0)
	if node.Type == xhtml.TextNode {
		if t := strings.TrimSpace(node.Data); t != "" {
			return []string{t}
		}
		return nil
	}
	if node.Type != xhtml.ElementNode {
		return nil
	}

	name := goquery.NodeName(s)
	switch name {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		c.headings++
		level := int(name[1] - '0')
		return []string{strings.Repeat("#", level) + " " + strings.TrimSpace(inline(s))}
	case "p":
		if t := strings.TrimSpace(inline(s)); t != "" {
			return []string{t}
		}
		return nil
	case "ul", "ol":
		return []string{list(s, 0)}
	case "table":
		c.tables++
		return []string{table(s)}
	case "pre":
		c.codeBlocks++
		return []string{fence(preLanguage(s), s.Text())}
	case "blockquote":
		lines := strings.Split(strings.TrimSpace(s.Text()), "\n")
		for i, l := range lines {
			lines[i] = "> " + strings.TrimSpace(l)
		}
		return []string{strings.Join(lines, "\n")}
	case "ac:structured-macro":
		if macro, _ := s.Attr("ac:name"); macro == "code" {
			c.codeBlocks++
			return []string{fence(macroLanguage(s), childrenNamed(s, "ac:plain-text-body").Text())}
		}
	case "script", "style", "head":
		return nil
	}

	var out []string
	s.Contents().Each(func(_ int, child *goquery.Selection) {
		out = append(out, c.block(child)...)
	})
	return out
}

func inline(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, child *goquery.Selection) {
		node := child.Get(0)
		if node.Type == xhtml.TextNode {
			b.WriteString(node.Data)
			return
		}
		if node.Type != xhtml.ElementNode {
			return
		}
		switch goquery.NodeName(child) {
		case "strong", "b":
			b.WriteString("**" + inline(child) + "**")
		case "em", "i":
			b.WriteString("*" + inline(child) + "*")
		case "code":
			b.WriteString("`" + child.Text() + "`")
		case "del", "s":
			b.WriteString("~~" + inline(child) + "~~")
		case "a":
			text := inline(child)
			if href, ok := child.Attr("href"); ok && href != "" && text != "" {
				b.WriteString("[" + text + "](" + href + ")")
			} else {
				b.WriteString(text)
			}
		case "br":
			b.WriteString("\n")
		case "ul", "ol":
			// nested lists are rendered by list
		default:
			b.WriteString(inline(child))
		}
	})
	return b.String()
}

func list(s *goquery.Selection, depth int) string {
	ordered := goquery.NodeName(s) == "ol"
	indent := strings.Repeat("  ", depth)

	var lines []string
	s.ChildrenFiltered("li").Each(func(i int, li *goquery.Selection) {
		marker := "-"
		if ordered {
			marker = fmt.Sprintf("%d.", i+1)
		}
		lines = append(lines, indent+marker+" "+strings.TrimSpace(inline(li)))
		li.ChildrenFiltered("ul, ol").Each(func(_ int, nested *goquery.Selection) {
			lines = append(lines, list(nested, depth+1))
		})
	})
	return strings.Join(lines, "\n")
}

func table(s *goquery.Selection) string {
	var rows [][]string
	s.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.ReplaceAll(strings.TrimSpace(inline(cell)), "|", `\|`))
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	if len(rows) == 0 {
		return ""
	}

	lines := []string{"| " + strings.Join(rows[0], " | ") + " |"}
	sep := make([]string, len(rows[0]))
	for i := range sep {
		sep[i] = "---"
	}
	lines = append(lines, "| "+strings.Join(sep, " | ")+" |")
	for _, r := range rows[1:] {
		lines = append(lines, "| "+strings.Join(r, " | ")+" |")
	}
	return strings.Join(lines, "\n")
}

func fence(lang, body string) string {
	return "```" + lang + "\n" + strings.Trim(body, "\n") + "\n```"
}

func preLanguage(pre *goquery.Selection) string {
	if lang := classLanguage(pre.Find("code").First()); lang != "" {
		return lang
	}
	if lang := classLanguage(pre); lang != "" {
		return lang
	}
	return "text"
}

func classLanguage(s *goquery.Selection) string {
	class, ok := s.Attr("class")
	if !ok {
		return ""
	}
	for _, cls := range strings.Fields(class) {
		if strings.HasPrefix(cls, "language-") {
			return strings.TrimPrefix(cls, "language-")
		}
		if knownLanguages[cls] {
			return cls
		}
	}
	return ""
}

func macroLanguage(macro *goquery.Selection) string {
	lang := "text"
	childrenNamed(macro, "ac:parameter").Each(func(_ int, p *goquery.Selection) {
		if name, _ := p.Attr("ac:name"); name == "language" {
			if v := strings.TrimSpace(p.Text()); v != "" {
				lang = v
			}
		}
	})
	return lang
}

// childrenNamed filters children by raw tag name; namespaced storage tags
// such as ac:parameter are awkward to express as CSS selectors.
func childrenNamed(s *goquery.Selection, name string) *goquery.Selection {
	return s.Children().FilterFunction(func(_ int, child *goquery.Selection) bool {
		return goquery.NodeName(child) == name
	})
}
