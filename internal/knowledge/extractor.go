package knowledge

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/unidoc/unioffice/document"
	"github.com/unidoc/unioffice/spreadsheet"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// ErrUnsupportedFormat 文件扩展名不在支持范围内
var ErrUnsupportedFormat = errors.New("unsupported file format")

// pdfMinYieldChars PDF主策略产出低于该非空白字符数视为退化提取
const pdfMinYieldChars = 50

// pdfFallbackMinBytes 只有文件大于该字节数时才触发布局感知回退
const pdfFallbackMinBytes = 1000

// FileExtractor 文件文本提取器接口
// 提取是(bytes, filename)的纯函数，除读取输入外没有副作用
type FileExtractor interface {
	Extract(data []byte, filename string) (string, error)
	Supports(filename string) bool
}

// PDFExtractor PDF文件提取器
// 先按页提取纯文本，产出过低或失败时回退到布局感知策略
type PDFExtractor struct{}

func (p *PDFExtractor) Supports(filename string) bool {
	return strings.ToLower(filepath.Ext(filename)) == ".pdf"
}

func (p *PDFExtractor) Extract(data []byte, filename string) (string, error) {
	text, err := extractPDFText(data, false)
	if err == nil {
		// 产出过低且文件足够大时，改用布局感知策略
		if countNonSpace(text) < pdfMinYieldChars && len(data) > pdfFallbackMinBytes {
			layoutText, layoutErr := extractPDFText(data, true)
			if layoutErr != nil {
				return "", fmt.Errorf("PDF parsing failed: primary yield too low, fallback also failed: %v", layoutErr)
			}
			return layoutText, nil
		}
		return text, nil
	}

	// 主策略失败，回退到布局感知策略
	layoutText, layoutErr := extractPDFText(data, true)
	if layoutErr != nil {
		return "", fmt.Errorf("PDF parsing failed: %v, fallback also failed: %v", err, layoutErr)
	}
	return layoutText, nil
}

// extractPDFText 按页提取PDF文本，页之间用空行分隔
// layout为true时使用布局感知的提取方式，适合复杂排版的PDF
func extractPDFText(data []byte, layout bool) (string, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("get page count: %w", err)
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return "", fmt.Errorf("get page %d: %w", i, err)
		}

		ex, err := extractor.New(page)
		if err != nil {
			return "", fmt.Errorf("extractor for page %d: %w", i, err)
		}

		var text string
		if layout {
			pageText, _, _, err := ex.ExtractPageText()
			if err != nil {
				return "", fmt.Errorf("extract page %d: %w", i, err)
			}
			text = pageText.Text()
		} else {
			text, err = ex.ExtractText()
			if err != nil {
				return "", fmt.Errorf("extract page %d: %w", i, err)
			}
		}

		if text != "" {
			pages = append(pages, text)
		}
	}

	return strings.Join(pages, "\n\n"), nil
}

// WordExtractor Word文档提取器（仅支持.docx）
type WordExtractor struct{}

func (p *WordExtractor) Supports(filename string) bool {
	return strings.ToLower(filepath.Ext(filename)) == ".docx"
}

func (p *WordExtractor) Extract(data []byte, filename string) (string, error) {
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}
	defer doc.Close()

	var parts []string

	// 正文段落
	for _, para := range doc.Paragraphs() {
		var sb strings.Builder
		for _, run := range para.Runs() {
			sb.WriteString(run.Text())
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			parts = append(parts, text)
		}
	}

	// 表格：每行的非空单元格用" | "连接，追加在正文之后
	for _, table := range doc.Tables() {
		for _, row := range table.Rows() {
			var cells []string
			for _, cell := range row.Cells() {
				var sb strings.Builder
				for _, para := range cell.Paragraphs() {
					for _, run := range para.Runs() {
						sb.WriteString(run.Text())
					}
				}
				cells = append(cells, sb.String())
			}
			if line, ok := joinRowCells(cells); ok {
				parts = append(parts, line)
			}
		}
	}

	return strings.Join(parts, "\n\n"), nil
}

// ExcelExtractor Excel文件提取器（仅支持.xlsx）
type ExcelExtractor struct{}

func (p *ExcelExtractor) Supports(filename string) bool {
	return strings.ToLower(filepath.Ext(filename)) == ".xlsx"
}

func (p *ExcelExtractor) Extract(data []byte, filename string) (string, error) {
	ss, err := spreadsheet.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse xlsx: %w", err)
	}
	defer ss.Close()

	var parts []string
	for _, sheet := range ss.Sheets() {
		parts = append(parts, fmt.Sprintf("=== Sheet: %s ===", sheet.Name()))

		for _, row := range sheet.Rows() {
			var cells []string
			for _, cell := range row.Cells() {
				cells = append(cells, cell.GetString())
			}
			if line, ok := joinRowCells(cells); ok {
				parts = append(parts, line)
			}
		}
	}

	return strings.Join(parts, "\n\n"), nil
}

// joinRowCells 把一行单元格连接为" | "分隔的文本
// 空白单元格直接跳过，不渲染占位；整行为空时返回false，不产出任何行
func joinRowCells(cells []string) (string, bool) {
	var values []string
	for _, cell := range cells {
		if text := strings.TrimSpace(cell); text != "" {
			values = append(values, text)
		}
	}
	if len(values) == 0 {
		return "", false
	}
	return strings.Join(values, " | "), true
}

// MarkdownExtractor Markdown文件提取器
type MarkdownExtractor struct{}

func (p *MarkdownExtractor) Supports(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".md" || ext == ".markdown"
}

func (p *MarkdownExtractor) Extract(data []byte, filename string) (string, error) {
	// 宽松UTF-8解码，非法序列替换为U+FFFD而不是报错
	return strings.ToValidUTF8(string(data), string(utf8.RuneError)), nil
}

// TextExtractor 纯文本文件提取器
type TextExtractor struct{}

func (p *TextExtractor) Supports(filename string) bool {
	return strings.ToLower(filepath.Ext(filename)) == ".txt"
}

func (p *TextExtractor) Extract(data []byte, filename string) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}

	// 依次尝试常见西文编码，尽量保留非UTF-8来源的内容
	decoders := []encoding.Encoding{
		charmap.ISO8859_1, // latin-1
		charmap.Windows1252,
		charmap.ISO8859_1, // iso-8859-1
	}
	for _, enc := range decoders {
		decoded, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		return string(decoded), nil
	}

	// 兜底：宽松UTF-8解码
	return strings.ToValidUTF8(string(data), string(utf8.RuneError)), nil
}

// ExtractorManager 提取器管理器
// 格式集合是封闭的，新增格式需要在这里显式登记
type ExtractorManager struct {
	extractors []FileExtractor
}

// NewExtractorManager 创建提取器管理器
func NewExtractorManager() *ExtractorManager {
	return &ExtractorManager{
		extractors: []FileExtractor{
			&PDFExtractor{},
			&WordExtractor{},
			&ExcelExtractor{},
			&MarkdownExtractor{},
			&TextExtractor{},
		},
	}
}

// Extract 根据文件扩展名分发到对应的提取器
func (m *ExtractorManager) Extract(data []byte, filename string) (string, error) {
	for _, ex := range m.extractors {
		if ex.Supports(filename) {
			return ex.Extract(data, filename)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
}

// Supports 检查文件名是否为支持的格式
func (m *ExtractorManager) Supports(filename string) bool {
	for _, ex := range m.extractors {
		if ex.Supports(filename) {
			return true
		}
	}
	return false
}

// SupportedExtensions 支持的文件扩展名列表
func (m *ExtractorManager) SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".xlsx", ".md", ".markdown", ".txt"}
}

func countNonSpace(s string) int {
	count := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			count++
		}
	}
	return count
}
