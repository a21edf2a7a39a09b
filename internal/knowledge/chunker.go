package knowledge

import (
	"errors"
	"strings"
)

// ErrNoChunks 切分后没有产生任何文本块
var ErrNoChunks = errors.New("text splitting resulted in no chunks")

// defaultSeparators 切分边界的优先级列表：段落 > 行 > 句子 > 词 > 字符
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunk 表示分块后的文本结构
type Chunk struct {
	Index int
	Text  string
}

// Chunker 文本分块器
// 按优先级尝试分隔符，尽量不在段落/句子/词中间切开；
// 只有没有更高优先级分隔符可用时才退化到按字符切分。
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewChunker 创建分块器
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: overlap,
		separators:   defaultSeparators,
	}
}

// Split 将文本切分为多个chunk
// 相同输入和配置下输出是确定的，块边界稳定可断言。
func (c *Chunker) Split(text string) ([]Chunk, error) {
	segments := c.split(text, c.separators)

	chunks := make([]Chunk, 0, len(segments))
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  seg,
		})
	}

	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	return chunks, nil
}

// split 递归切分：选择当前文本中出现的最高优先级分隔符，
// 切出的碎片合并到预算以内；仍超预算的碎片用剩余的低优先级分隔符继续切。
func (c *Chunker) split(text string, separators []string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if runeLen(text) <= c.chunkSize {
		return []string{text}
	}

	sep := ""
	var rest []string
	for i, s := range separators {
		if s == "" {
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	if sep == "" {
		return c.splitByRunes(text)
	}

	parts := strings.SplitAfter(text, sep)
	return c.merge(parts, rest)
}

// merge 将分隔符切出的碎片贪心合并为不超过chunkSize的块，
// 相邻块之间保留最多chunkOverlap个字符的尾部上下文。
func (c *Chunker) merge(parts []string, rest []string) []string {
	var out []string
	var current []string
	total := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		if merged := strings.TrimSpace(strings.Join(current, "")); merged != "" {
			out = append(out, merged)
		}
	}

	for _, part := range parts {
		partLen := runeLen(part)
		if partLen == 0 {
			continue
		}

		// 单个碎片就超预算：先落盘当前块，再用低优先级分隔符递归切
		if partLen > c.chunkSize {
			flush()
			current = current[:0]
			total = 0
			out = append(out, c.split(part, rest)...)
			continue
		}

		if total+partLen > c.chunkSize {
			flush()
			// 从头部弹出碎片，直到剩余部分可作为重叠上下文且不会撑爆下一个块
			for len(current) > 0 && (total > c.chunkOverlap || total+partLen > c.chunkSize) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}

		current = append(current, part)
		total += partLen
	}

	flush()
	return out
}

// splitByRunes 字符级兜底切分，步长为chunkSize-chunkOverlap
func (c *Chunker) splitByRunes(text string) []string {
	runes := []rune(text)

	step := c.chunkSize - c.chunkOverlap
	if step <= 0 {
		step = c.chunkSize
	}

	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}

func runeLen(s string) int {
	return len([]rune(s))
}
