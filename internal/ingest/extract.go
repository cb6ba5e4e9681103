package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"

	"balcon-assistant/internal/models"
)

// SupportedFormats lists the accepted file extensions (without dot).
var SupportedFormats = []string{"pdf", "docx", "txt", "md", "xlsx"}

// IsSupported reports whether a path's extension is ingestible.
func IsSupported(path string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, f := range SupportedFormats {
		if ext == f {
			return true
		}
	}
	return false
}

// ExtractText pulls the plain text out of a document. Empty extracted
// text is an ErrExtraction.
func ExtractText(path string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	var (
		text string
		err  error
	)
	switch ext {
	case "pdf":
		text, err = extractPDF(path)
	case "docx":
		text, err = extractDOCX(path)
	case "txt":
		text, err = extractPlainText(path)
	case "md":
		text, err = extractMarkdown(path)
	case "xlsx":
		text, err = extractXLSX(path)
	default:
		return "", fmt.Errorf("%w: unsupported format %q", models.ErrValidation, ext)
	}
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s contains no extractable text", models.ErrExtraction, filepath.Base(path))
	}
	return text, nil
}

// extractPDF reads page-wise, continuing past individual page failures.
func extractPDF(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Str("file", filepath.Base(path)).
				Msg("page extraction failed, skipping")
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n--- Página %d/%d ---\n", i, numPages))
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

var xmlTagRe = regexp.MustCompile(`<[^>]*>`)

// extractDOCX scrapes paragraphs and table rows out of the document XML;
// table cells are joined with " | ".
func extractDOCX(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	// element boundaries become text delimiters before the tags go
	content = strings.ReplaceAll(content, "</w:tc>", " | ")
	content = strings.ReplaceAll(content, "</w:tr>", "\n")
	content = strings.ReplaceAll(content, "</w:p>", "\n")
	content = xmlTagRe.ReplaceAllString(content, "")

	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(strings.TrimSpace(line), "|")
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// extractPlainText reads the file as UTF-8 with a latin-1 fallback for
// older documents.
func extractPlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	log.Info().Str("file", filepath.Base(path)).Msg("falling back to latin-1 decoding")
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes), nil
}

// extractMarkdown parses with goldmark and collects the text segments of
// the AST, one line per block.
func extractMarkdown(path string) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}

	doc := goldmark.New().Parser().Parse(gmtext.NewReader(src))
	var sb strings.Builder
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if _, isBlock := n.(*ast.Paragraph); isBlock {
				sb.WriteString("\n\n")
			}
			if _, isHeading := n.(*ast.Heading); isHeading {
				sb.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}
	return sb.String(), nil
}

// extractXLSX walks every sheet row-wise, cells joined with tabs.
func extractXLSX(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			log.Warn().Err(err).Str("sheet", sheetName).Msg("sheet read failed, skipping")
			continue
		}
		sb.WriteString(fmt.Sprintf("## Hoja: %s\n", sheetName))
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}
