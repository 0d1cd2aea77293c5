package service

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// DescriptionRenderer turns organizer markdown into HTML. Raw HTML in the
// source is passed through; the source is trusted.
type DescriptionRenderer struct {
	md goldmark.Markdown
}

func NewDescriptionRenderer() *DescriptionRenderer {
	return &DescriptionRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// Render 渲染 markdown，并把指向附件文件名的行内链接替换为附件地址。
// 引用式链接（[text][ref]）保持原样。
func (r *DescriptionRenderer) Render(source string, links map[string]string) (string, error) {
	src := []byte(source)
	pc := parser.NewContext()
	doc := r.md.Parser().Parse(text.NewReader(src), parser.WithContext(pc))

	if len(links) > 0 {
		refs := referenceDestinations(pc)
		err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
			if !entering {
				return ast.WalkContinue, nil
			}
			link, ok := n.(*ast.Link)
			if !ok || len(link.Destination) == 0 || refs[&link.Destination[0]] {
				return ast.WalkContinue, nil
			}
			if url, found := links[string(link.Destination)]; found {
				link.Destination = []byte(url)
			}
			return ast.WalkContinue, nil
		})
		if err != nil {
			return "", err
		}
	}

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, src, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// referenceDestinations 收集引用定义的目标地址。引用式链接直接复用定义中的
// 切片，按首字节地址即可区分。
func referenceDestinations(pc parser.Context) map[*byte]bool {
	refs := make(map[*byte]bool)
	for _, ref := range pc.References() {
		if dest := ref.Destination(); len(dest) > 0 {
			refs[&dest[0]] = true
		}
	}
	return refs
}
