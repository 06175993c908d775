// Package split 实现两趟切分编排：趟 1 计数，趟 2 按种子置换指派并流式写出。
// 两趟严格串行，语料不整体进内存；趟间源文件只读不变是正确性前提。
package split

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"conllsplit/pkg/contract"
)

// Settings: 一次切分调用的只读参数（来源校验由 CLI/库调用方完成）。
type Settings struct {
	// Test/Dev: 测试/验证集比例（0 ≤ x < 1，test+dev < 1）。
	Test float64
	Dev  float64
	// Seed: 显式随机种子；nil 时取样本总数。
	Seed *int64
	// CrossValidation: 构建 k 折交叉验证数据集（k = round(1/test)）。
	CrossValidation bool
	// OmitMetadata: 不向输出写文档/段落元数据行（样本自身起始行始终保留）。
	OmitMetadata bool
	// OutputFolder: 输出目录（不存在时创建）。
	OutputFolder string
	// OutputName/OutputExt: 输出文件基名与扩展名（含点，可为空）。
	OutputName string
	OutputExt  string
}

// ResolveSource 将 source 解析为有序输入文件列表。
// 规则：普通文件 → 单元素列表；目录 → 目录内全部普通文件按字典序
// （拼接顺序即语料顺序，不递归）；目录为空 → ErrParamInvalid；
// 路径缺失 → I/O 错误原样传递。
func ResolveSource(source string) ([]string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{source}, nil
	}
	entries, err := os.ReadDir(source)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(source, e.Name())
		fi, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if fi.Mode().IsRegular() {
			files = append(files, p)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no input files in %s", contract.ErrParamInvalid, source)
	}
	return files, nil
}

// DeriveOutputName 推导输出文件基名与扩展名。
// explicit 非空时优先；否则取 source 基名。扩展名（最后一个点起）
// 被保留并附加在切分后缀之后：name_train.conllu。目录来源无扩展名。
func DeriveOutputName(source, explicit string) (name, ext string) {
	base := strings.TrimSpace(explicit)
	if base == "" {
		base = filepath.Base(filepath.Clean(source))
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		return base[:i], base[i:]
	}
	return base, ""
}

// outName 拼装单个输出文件名：{name}_{split}.{ext}，
// 交叉验证追加 1 起的折号：{name}_{split}{k}.{ext}。折间不冲突。
func outName(set Settings, ds Dataset, fold, folds int) string {
	suffix := ""
	if folds > 1 {
		suffix = fmt.Sprintf("%d", fold+1)
	}
	return fmt.Sprintf("%s_%s%s%s", set.OutputName, ds, suffix, set.OutputExt)
}

// outSet: 一次调用独占的全部输出流（每折 train/test 必开，dev 仅在
// devSize > 0 时创建）。所有退出路径上冲刷并关闭每个文件；无事务
// 回滚，写途失败可能留下部分文件（已知限制）。
type outSet struct {
	files []*os.File
	bufs  [][3]*bufio.Writer
}

// openOutputs 创建输出目录并打开全部输出文件。
func openOutputs(set Settings, pl *Plan) (*outSet, error) {
	if err := os.MkdirAll(set.OutputFolder, 0o755); err != nil {
		return nil, err
	}
	o := &outSet{bufs: make([][3]*bufio.Writer, pl.Folds)}
	for f := 0; f < pl.Folds; f++ {
		for _, ds := range []Dataset{Train, Dev, Test} {
			if ds == Dev && pl.DevSize == 0 {
				continue
			}
			path := filepath.Join(set.OutputFolder, outName(set, ds, f, pl.Folds))
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				o.close()
				return nil, err
			}
			o.files = append(o.files, file)
			o.bufs[f][ds] = bufio.NewWriterSize(file, 64*1024)
		}
	}
	return o, nil
}

func (o *outSet) writer(fold int, ds Dataset) *bufio.Writer { return o.bufs[fold][ds] }

// finish 冲刷全部缓冲并关闭文件，返回首个错误。
func (o *outSet) finish() error {
	var first error
	for _, row := range o.bufs {
		for _, bw := range row {
			if bw == nil {
				continue
			}
			if err := bw.Flush(); err != nil && first == nil {
				first = err
			}
		}
	}
	if err := o.close(); err != nil && first == nil {
		first = err
	}
	return first
}

func (o *outSet) close() error {
	var first error
	for _, f := range o.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Run 执行完整切分：计数趟 → 指派方案 → 写出趟。
// 约束：
// - it 可为任何满足 contract.Iterator 的实现（迭代器多态）；
// - 参数/空语料错误先于任何输出副作用；
// - 写出趟的遭遇下标与计数趟共用同一下标空间；数目不一致
//   （趟间文件被改动）→ ErrInvariantViolation。
func Run(ctx context.Context, it contract.Iterator, set Settings, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	n, err := it.SampleCount(ctx)
	if err != nil {
		return err
	}
	logger.Info("samples counted", zap.Int("sample_count", n))

	pl, err := NewPlan(n, planParams{
		Test:            set.Test,
		Dev:             set.Dev,
		Seed:            set.Seed,
		CrossValidation: set.CrossValidation,
	})
	if err != nil {
		return err
	}
	logger.Info("partition planned",
		zap.Int64("seed", pl.Seed),
		zap.Int("folds", pl.Folds),
		zap.Int("train_size", pl.TrainSize),
		zap.Int("dev_size", pl.DevSize),
		zap.Int("test_size", pl.TestSize))

	out, err := openOutputs(set, pl)
	if err != nil {
		return err
	}

	// 全局元数据累积 + 每流已写元数据视图：文档/段落注释行在每个
	// 输出流上、于首个相关样本之前恰好重放一次。
	global := contract.NewMetadata()
	streamMeta := make([][3]contract.Metadata, pl.Folds)
	for f := range streamMeta {
		for d := range streamMeta[f] {
			streamMeta[f][d] = contract.NewMetadata()
		}
	}

	seen := 0
	iterErr := it.Iterate(ctx, func(index int, text string, meta contract.Metadata) error {
		if index >= n {
			return fmt.Errorf("%w: sample index %d beyond counted %d (source mutated between passes?)", contract.ErrInvariantViolation, index, n)
		}
		seen++
		global.Update(meta)
		for f := 0; f < pl.Folds; f++ {
			ds := pl.Assign(f, index)
			w := out.writer(f, ds)
			if !set.OmitMetadata {
				for _, mv := range streamMeta[f][ds].DiffAndUpdate(global) {
					if _, err := w.WriteString(mv.Text); err != nil {
						return err
					}
					if err := w.WriteByte('\n'); err != nil {
						return err
					}
				}
			} else {
				// 元数据省略模式仍需推进视图，保证开关语义与流状态无关。
				streamMeta[f][ds].Update(global)
			}
			if _, err := w.WriteString(text); err != nil {
				return err
			}
		}
		return nil
	})
	if err := out.finish(); err != nil && iterErr == nil {
		iterErr = err
	}
	if iterErr != nil {
		return iterErr
	}
	if seen != n {
		return fmt.Errorf("%w: pass 2 yielded %d samples, pass 1 counted %d", contract.ErrInvariantViolation, seen, n)
	}
	logger.Info("split done", zap.Int("samples", n), zap.Int("folds", pl.Folds))
	return nil
}
