// Package conll 实现 CONLL-U 风格语料的 Iterator。
// 样本以 sent_id 注释行开始、空行结束；样本间的注释行作为元数据捕获。
package conll

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"conllsplit/pkg/contract"
)

// 默认识别模式（与 CONLL-U 约定对齐）。
const (
	// DefaultSampleStartPattern: 样本起始行（# sent_id = ... / # sent_id=...）。
	DefaultSampleStartPattern = `^#\s?sent_id\s?=`
	// DefaultSampleEndPattern: 样本结束行（空行）。
	DefaultSampleEndPattern = `^\s*$`
	// DefaultCommentPattern: 注释/元数据行，捕获属性名与可选取值。
	DefaultCommentPattern = `^#\s?(?P<attr_name>[^=]+?)(?:\s?=\s?(?P<attr_value>.+))?$`
)

// scanBufSize: 行扫描缓冲上限。CONLL 行通常很短，上限仅为容错。
const scanBufSize = 1 << 20

// Options: 可选配置（最小必要）。零值字段采用默认。
type Options struct {
	// SampleStartPattern: 匹配样本起始行的正则。
	SampleStartPattern string `yaml:"sample_start_pattern"`
	// SampleEndPattern: 匹配样本结束行的正则。
	SampleEndPattern string `yaml:"sample_end_pattern"`
	// CommentPattern: 匹配注释（元数据）行的正则；须含属性名捕获组
	// （命名组 attr_name/attr_value，或顺次第 1/2 组）。
	CommentPattern string `yaml:"comment_pattern"`
	// IgnoreMetadataAttributes: 即使匹配也不记录的属性名。
	// nil 时采用默认 ["global.columns"]；显式空切片表示全部记录。
	IgnoreMetadataAttributes []string `yaml:"ignore_metadata_attributes"`
}

// Iterator 实现 contract.Iterator：按文件给定顺序拼接为单一逻辑语料。
type Iterator struct {
	files   []string
	start   *regexp.Regexp
	end     *regexp.Regexp
	comment *regexp.Regexp
	// comment 捕获组下标（命名组优先，缺省取 1/2）。
	nameIdx  int
	valueIdx int
	ignore   map[contract.AttrName]struct{}

	// 计数缓存：源文件在迭代器生命期内视为不可变。
	count   int
	counted bool
}

var _ contract.Iterator = (*Iterator)(nil)

// New 创建 CONLL Iterator。files 顺序即拼接顺序（目录排序由调用方负责）。
// 模式非法时返回错误；文件缺失在首次遍历时报 *os.PathError。
func New(files []string, opts *Options) (*Iterator, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no input files", contract.ErrParamInvalid)
	}
	sp, ep, cp := DefaultSampleStartPattern, DefaultSampleEndPattern, DefaultCommentPattern
	if opts != nil && strings.TrimSpace(opts.SampleStartPattern) != "" {
		sp = opts.SampleStartPattern
	}
	if opts != nil && strings.TrimSpace(opts.SampleEndPattern) != "" {
		ep = opts.SampleEndPattern
	}
	if opts != nil && strings.TrimSpace(opts.CommentPattern) != "" {
		cp = opts.CommentPattern
	}
	start, err := regexp.Compile(sp)
	if err != nil {
		return nil, fmt.Errorf("%w: sample_start_pattern: %v", contract.ErrParamInvalid, err)
	}
	end, err := regexp.Compile(ep)
	if err != nil {
		return nil, fmt.Errorf("%w: sample_end_pattern: %v", contract.ErrParamInvalid, err)
	}
	comment, err := regexp.Compile(cp)
	if err != nil {
		return nil, fmt.Errorf("%w: comment_pattern: %v", contract.ErrParamInvalid, err)
	}
	ni := comment.SubexpIndex("attr_name")
	if ni < 0 {
		ni = 1
	}
	vi := comment.SubexpIndex("attr_value")
	if vi < 0 {
		vi = 2
	}
	if comment.NumSubexp() < ni {
		return nil, fmt.Errorf("%w: comment_pattern lacks attr_name group", contract.ErrParamInvalid)
	}
	var ignoreList []string
	if opts == nil || opts.IgnoreMetadataAttributes == nil {
		ignoreList = []string{"global.columns"}
	} else {
		ignoreList = opts.IgnoreMetadataAttributes
	}
	ignore := make(map[contract.AttrName]struct{}, len(ignoreList))
	for _, a := range ignoreList {
		ignore[contract.AttrName(a)] = struct{}{}
	}
	cloned := make([]string, len(files))
	copy(cloned, files)
	return &Iterator{
		files:    cloned,
		start:    start,
		end:      end,
		comment:  comment,
		nameIdx:  ni,
		valueIdx: vi,
		ignore:   ignore,
	}, nil
}

// SampleCount 返回样本总数（仅匹配起始行的轻量计数趟；结果缓存）。
func (it *Iterator) SampleCount(ctx context.Context) (int, error) {
	if it.counted {
		return it.count, nil
	}
	n := 0
	for _, path := range it.files {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		c, err := it.countFile(path)
		if err != nil {
			return 0, err
		}
		n += c
	}
	it.count = n
	it.counted = true
	return n, nil
}

func (it *Iterator) countFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n := 0
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 64*1024), scanBufSize)
	for s.Scan() {
		if it.start.MatchString(s.Text()) {
			n++
		}
	}
	return n, s.Err()
}

// Iterate 重新打开全部源文件并按遭遇顺序产出样本。
// 状态机与边界规则：
// - 样本外：起始行开启样本（该行计入正文）；注释行记入待决元数据
//   （忽略表中的属性除外）；其余行丢弃（含首个起始行之前的内容）。
// - 样本内：结束行（空行）关闭样本并产出（正文末尾附一个 '\n' 分隔符，
//   待决元数据随样本快照后清空）；再次出现起始行则关闭当前样本并立即
//   开启新样本（与计数趟"每个起始行恰一个样本"保持一致）；
//   其余行原样并入正文。
// - 文件尾关闭未终结的样本；待决元数据在每个文件开头清空。
// 全局行号跨文件连续累计，保证元数据重放顺序稳定。
func (it *Iterator) Iterate(ctx context.Context, yield func(index int, text string, meta contract.Metadata) error) error {
	index := 0
	line := -1
	for _, path := range it.files {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := it.iterateFile(ctx, path, &line, index, yield)
		if err != nil {
			return err
		}
		index += n
	}
	return nil
}

func (it *Iterator) iterateFile(ctx context.Context, path string, line *int, base int, yield func(int, string, contract.Metadata) error) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var body strings.Builder
	meta := contract.NewMetadata()
	reading := false
	yielded := 0

	emit := func() error {
		body.WriteByte('\n')
		err := yield(base+yielded, body.String(), meta.Clone())
		yielded++
		body.Reset()
		meta = contract.NewMetadata()
		reading = false
		return err
	}

	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 64*1024), scanBufSize)
	for s.Scan() {
		if err := ctx.Err(); err != nil {
			return yielded, err
		}
		(*line)++
		text := s.Text()
		switch {
		case reading && it.end.MatchString(text):
			if err := emit(); err != nil {
				return yielded, err
			}
		case reading && it.start.MatchString(text):
			if err := emit(); err != nil {
				return yielded, err
			}
			reading = true
			body.WriteString(text)
			body.WriteByte('\n')
		case reading:
			body.WriteString(text)
			body.WriteByte('\n')
		case it.start.MatchString(text):
			reading = true
			body.WriteString(text)
			body.WriteByte('\n')
		default:
			m := it.comment.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			name := contract.AttrName(m[it.nameIdx])
			if _, skip := it.ignore[name]; skip {
				continue
			}
			value := ""
			if it.valueIdx < len(m) {
				value = m[it.valueIdx]
			}
			meta.Set(name, contract.MetadataValue{Value: value, Text: text, Line: *line})
		}
	}
	if err := s.Err(); err != nil {
		return yielded, err
	}
	// 文件尾：关闭未终结样本，保证与计数趟一致。
	if reading {
		if err := emit(); err != nil {
			return yielded, err
		}
	}
	return yielded, nil
}
