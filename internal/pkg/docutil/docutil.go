// Package docutil extracts plain text from uploaded document files.
//
// Supported formats: .txt and .md (passed through as-is), .docx (paragraph
// and table content flattened to text). Paragraphs become blocks separated
// by blank lines; table rows become one block per row with cells joined by
// " | ".
package docutil

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"path/filepath"
	"strings"

	"github.com/kart-io/docchat/pkg/errors"
)

// supportedExtensions lists the file extensions the extractor accepts.
var supportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".docx": true,
}

// SupportedExtension reports whether filename has an extractable extension.
func SupportedExtension(filename string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Extract returns the plain text of a document file.
func Extract(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md":
		return string(data), nil
	case ".docx":
		return ExtractDocx(data)
	default:
		return "", errors.ErrUnsupportedFileType.WithMessagef("unsupported file type: %s", filepath.Ext(filename))
	}
}

// docx XML structure, matched by local element name. Only direct runs of a
// paragraph are read, mirroring how most extractors flatten documents.
type docxDocument struct {
	XMLName xml.Name `xml:"document"`
	Body    docxBody `xml:"body"`
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"p"`
	Tables     []docxTable     `xml:"tbl"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Texts []string `xml:"t"`
}

type docxTable struct {
	Rows []docxRow `xml:"tr"`
}

type docxRow struct {
	Cells []docxCell `xml:"tc"`
}

type docxCell struct {
	Paragraphs []docxParagraph `xml:"p"`
}

func (p docxParagraph) text() string {
	var sb strings.Builder
	for _, run := range p.Runs {
		for _, t := range run.Texts {
			sb.WriteString(t)
		}
	}
	return sb.String()
}

// ExtractDocx extracts text from .docx file bytes. Body paragraphs come
// first in document order, then tables row by row.
func ExtractDocx(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.ErrExtractFailed.WithCause(err)
	}

	var docXML []byte
	for _, f := range reader.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", errors.ErrExtractFailed.WithCause(err)
		}
		docXML, err = io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return "", errors.ErrExtractFailed.WithCause(err)
		}
		break
	}
	if docXML == nil {
		return "", errors.ErrExtractFailed.WithMessage("docx: missing word/document.xml")
	}

	var doc docxDocument
	if err := xml.Unmarshal(docXML, &doc); err != nil {
		return "", errors.ErrExtractFailed.WithCause(err)
	}

	var blocks []string

	for _, para := range doc.Body.Paragraphs {
		if text := strings.TrimSpace(para.text()); text != "" {
			blocks = append(blocks, text)
		}
	}

	for _, table := range doc.Body.Tables {
		for _, row := range table.Rows {
			var cells []string
			for _, cell := range row.Cells {
				var parts []string
				for _, para := range cell.Paragraphs {
					if text := strings.TrimSpace(para.text()); text != "" {
						parts = append(parts, text)
					}
				}
				if cellText := strings.Join(parts, " "); cellText != "" {
					cells = append(cells, cellText)
				}
			}
			if len(cells) > 0 {
				blocks = append(blocks, strings.Join(cells, " | "))
			}
		}
	}

	return strings.Join(blocks, "\n\n"), nil
}
