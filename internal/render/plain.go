package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
)

// plainMarkdown is a shared goldmark instance with the strikethrough
// extension.
var plainMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough),
)

// Plain renders markdown as plain text for non-terminal output. Inline
// styling is stripped, lists keep their bullets, headings keep their "#"
// markers, code blocks stay verbatim, and links become "text (url)".
func Plain(md string) string {
	if strings.TrimSpace(md) == "" {
		return md
	}

	var htmlBuf bytes.Buffer
	if err := plainMarkdown.Convert([]byte(md), &htmlBuf); err != nil {
		return md
	}

	return htmlToPlain(htmlBuf.String())
}

// htmlToPlain walks goldmark's HTML output and produces plain text.
func htmlToPlain(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))

	var sb strings.Builder
	type listState struct {
		ordered bool
		counter int
	}
	var listStack []listState

	inPre := false
	inAnchor := false
	anchorHref := ""
	var anchorText strings.Builder

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}

		tok := z.Token()

		switch tt {
		case html.TextToken:
			text := tok.Data
			if inPre {
				sb.WriteString(text)
				continue
			}
			// Inter-block whitespace from goldmark's pretty-printing;
			// spacing between blocks is handled on tag boundaries.
			if strings.ContainsRune(text, '\n') && strings.TrimSpace(text) == "" {
				continue
			}
			sb.WriteString(text)
			if inAnchor {
				anchorText.WriteString(text)
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			switch tag := tok.Data; tag {
			case "pre":
				inPre = true
				sb.WriteString("\n")
			case "a":
				inAnchor = true
				anchorHref = attrVal(tok.Attr, "href")
				anchorText.Reset()
			case "br":
				sb.WriteString("\n")
			case "ul":
				listStack = append(listStack, listState{ordered: false})
			case "ol":
				listStack = append(listStack, listState{ordered: true})
			case "li":
				if len(listStack) > 0 && listStack[len(listStack)-1].ordered {
					top := &listStack[len(listStack)-1]
					top.counter++
					fmt.Fprintf(&sb, "\n%d. ", top.counter)
				} else {
					sb.WriteString("\n- ")
				}
			case "h1", "h2", "h3", "h4", "h5", "h6":
				level := int(tag[1] - '0')
				sb.WriteString("\n" + strings.Repeat("#", level) + " ")
			case "hr":
				sb.WriteString("\n--------\n\n")
			}

		case html.EndTagToken:
			switch tok.Data {
			case "pre":
				inPre = false
				sb.WriteString("\n")
			case "a":
				inAnchor = false
				if anchorHref != "" && anchorHref != anchorText.String() {
					fmt.Fprintf(&sb, " (%s)", anchorHref)
				}
			case "p":
				sb.WriteString("\n\n")
			case "ul", "ol":
				if len(listStack) > 0 {
					listStack = listStack[:len(listStack)-1]
				}
				sb.WriteString("\n\n")
			case "h1", "h2", "h3", "h4", "h5", "h6":
				sb.WriteString("\n\n")
			}
		}
	}

	result := strings.TrimSpace(sb.String())
	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}
	return result
}

func attrVal(attrs []html.Attribute, name string) string {
	for _, a := range attrs {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
