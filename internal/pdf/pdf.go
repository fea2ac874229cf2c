// Package pdf turns rendered document content into PDF bytes.
package pdf

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/net/html"
)

const (
	fontFamily   = "Go"
	bodySize     = 10
	headingSize  = 15
	lineHeight   = 5
	imageWidth   = 60
	imageHeight  = 15
	pngDataURI   = "data:image/png;base64,"
	cellSpacing  = "    "
	documentUnit = "mm"
)

// Renderer converts the HTML produced by package render into a PDF. Only the
// subset of markup used by document templates is understood: headings,
// paragraphs, line breaks, bold text, tables and inline PNG images.
type Renderer struct {
	Author string
}

func New() *Renderer {
	return &Renderer{Author: "itstorage"}
}

// Render returns a PDF for content. created is embedded as the creation date
// so identical inputs produce identical bytes.
func (r *Renderer) Render(content string, created time.Time) ([]byte, error) {
	doc := fpdf.New("P", documentUnit, "A4", "")
	doc.SetCreationDate(created.UTC())
	doc.SetModificationDate(created.UTC())
	doc.SetCatalogSort(true)
	doc.SetAuthor(r.Author, true)
	doc.SetMargins(15, 15, 15)
	// Core fonts cannot encode Cyrillic.
	doc.AddUTF8FontFromBytes(fontFamily, "", goregular.TTF)
	doc.AddUTF8FontFromBytes(fontFamily, "B", gobold.TTF)
	doc.AddPage()
	doc.SetFont(fontFamily, "", bodySize)

	w := &writer{doc: doc}
	if err := w.walk(html.NewTokenizer(strings.NewReader(content))); err != nil {
		return nil, err
	}
	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("failed to lay out pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type writer struct {
	doc     *fpdf.Fpdf
	skip    int
	bold    int
	heading bool
	images  int
}

func (w *writer) walk(z *html.Tokenizer) error {
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to parse document content: %w", z.Err())
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if err := w.open(string(name), hasAttr, z); err != nil {
				return err
			}
		case html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if err := w.open(string(name), hasAttr, z); err != nil {
				return err
			}
			w.close(string(name))
		case html.EndTagToken:
			name, _ := z.TagName()
			w.close(string(name))
		case html.TextToken:
			if w.skip == 0 {
				w.text(string(z.Text()))
			}
		}
	}
}

func (w *writer) open(tag string, hasAttr bool, z *html.Tokenizer) error {
	switch tag {
	case "head", "style", "script", "title":
		w.skip++
	case "b", "strong", "th":
		w.bold++
		w.font()
	case "h1", "h2", "h3":
		w.doc.Ln(lineHeight)
		w.heading = true
		w.font()
	case "br":
		w.doc.Ln(lineHeight)
	case "img":
		if w.skip > 0 {
			return nil
		}
		for hasAttr {
			var key, val []byte
			key, val, hasAttr = z.TagAttr()
			if string(key) == "src" {
				return w.image(string(val))
			}
		}
	}
	return nil
}

func (w *writer) close(tag string) {
	switch tag {
	case "head", "style", "script", "title":
		if w.skip > 0 {
			w.skip--
		}
	case "b", "strong":
		if w.bold > 0 {
			w.bold--
		}
		w.font()
	case "th":
		if w.bold > 0 {
			w.bold--
		}
		w.font()
		w.doc.Write(lineHeight, cellSpacing)
	case "td":
		w.doc.Write(lineHeight, cellSpacing)
	case "h1", "h2", "h3":
		w.heading = false
		w.font()
		w.doc.Ln(lineHeight * 2)
	case "p", "tr", "div", "table":
		w.doc.Ln(lineHeight)
	}
}

func (w *writer) font() {
	style := ""
	if w.bold > 0 || w.heading {
		style = "B"
	}
	size := float64(bodySize)
	if w.heading {
		size = headingSize
	}
	w.doc.SetFont(fontFamily, style, size)
}

func (w *writer) text(s string) {
	collapsed := strings.Join(strings.Fields(s), " ")
	if collapsed == "" {
		return
	}
	if strings.TrimLeft(s, " \t\r\n") != s {
		collapsed = " " + collapsed
	}
	if strings.TrimRight(s, " \t\r\n") != s {
		collapsed += " "
	}
	w.doc.Write(lineHeight, collapsed)
}

// image places an inline PNG. Sources other than PNG data URIs are ignored.
func (w *writer) image(src string) error {
	if !strings.HasPrefix(src, pngDataURI) {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(src, pngDataURI))
	if err != nil {
		return fmt.Errorf("failed to decode inline image: %w", err)
	}

	w.images++
	name := fmt.Sprintf("inline-%d", w.images)
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	w.doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	w.doc.ImageOptions(name, -1, 0, imageWidth, imageHeight, true, opts, 0, "")
	return nil
}
