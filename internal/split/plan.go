package split

import (
	"fmt"
	"math"
	"math/rand"

	"conllsplit/pkg/contract"
)

// Dataset: 样本在一个折内的归属。
type Dataset int

const (
	Train Dataset = iota
	Dev
	Test
)

func (d Dataset) String() string {
	switch d {
	case Train:
		return "train"
	case Dev:
		return "dev"
	case Test:
		return "test"
	default:
		return "train"
	}
}

// Plan: 一次切分的完整指派方案。
// 约束：
// - 单一种子置换是唯一随机源；固定 (seed, sampleCount) 下方案完全确定；
// - 各折共享同一置换，仅测试/验证窗口位置不同；
// - assign[f][i] 为原始样本下标 i 在折 f 内的归属，每折覆盖全部样本。
type Plan struct {
	SampleCount int
	TestSize    int
	DevSize     int
	TrainSize   int
	Seed        int64
	Folds       int

	assign [][]Dataset
}

// planParams: NewPlan 的输入（比例 + 模式开关）。
type planParams struct {
	Test            float64
	Dev             float64
	Seed            *int64
	CrossValidation bool
}

// NewPlan 校验参数、推导种子与窗口尺寸并构建指派表。
// 规则：
// - 0 ≤ test < 1、0 ≤ dev < 1 且 test+dev < 1（严格），否则 ErrParamInvalid；
// - sampleCount == 0 → ErrEmptyCorpus；
// - testSize = round(test·n)，devSize = round(dev·n)，train 取余数；
//   testSize == 0 → ErrParamInvalid；
// - 交叉验证折数 k = round(1/test)，k < 2 → ErrParamInvalid；
// - 种子缺省取 sampleCount（同一语料规模可复现）。
func NewPlan(sampleCount int, p planParams) (*Plan, error) {
	if p.Test < 0 || p.Test >= 1 {
		return nil, fmt.Errorf("%w: test proportion %v out of [0,1)", contract.ErrParamInvalid, p.Test)
	}
	if p.Dev < 0 || p.Dev >= 1 {
		return nil, fmt.Errorf("%w: dev proportion %v out of [0,1)", contract.ErrParamInvalid, p.Dev)
	}
	if p.Test+p.Dev >= 1 {
		return nil, fmt.Errorf("%w: test+dev proportions sum to %v (must be < 1)", contract.ErrParamInvalid, p.Test+p.Dev)
	}
	if sampleCount == 0 {
		return nil, contract.ErrEmptyCorpus
	}

	n := sampleCount
	testSize := int(math.Round(p.Test * float64(n)))
	devSize := int(math.Round(p.Dev * float64(n)))
	trainSize := n - testSize - devSize
	if testSize == 0 {
		return nil, fmt.Errorf("%w: test window rounds to 0 samples", contract.ErrParamInvalid)
	}
	if trainSize < 0 {
		return nil, fmt.Errorf("%w: train window negative", contract.ErrParamInvalid)
	}

	folds := 1
	if p.CrossValidation {
		folds = int(math.Round(1 / p.Test))
		if folds < 2 {
			return nil, fmt.Errorf("%w: test proportion %v yields %d fold(s) (need >= 2)", contract.ErrParamInvalid, p.Test, folds)
		}
		// 末折测试窗口起点必须落在置换内，否则语料过小无法摆下 k 折。
		if (folds-1)*testSize >= n {
			return nil, fmt.Errorf("%w: corpus of %d samples too small for %d folds of %d", contract.ErrParamInvalid, n, folds, testSize)
		}
	}

	seed := int64(n)
	if p.Seed != nil {
		seed = *p.Seed
	}

	pl := &Plan{
		SampleCount: n,
		TestSize:    testSize,
		DevSize:     devSize,
		TrainSize:   trainSize,
		Seed:        seed,
		Folds:       folds,
	}
	pl.build(rand.New(rand.NewSource(seed)).Perm(n))
	return pl, nil
}

// build 由置换构建各折指派表。
// 窗口布局（对置换位置而言）：
// - 折 f 的测试窗口为第 f 个 testSize 大小的连续块；交叉验证时末折右边界
//   延伸到 n，吸收取整余数，使各折测试窗口恰好划分整个置换；
//   单折（标准切分）窗口恰为 perm[0:testSize]；
// - 验证窗口为测试窗口之前的 devSize 个位置，环绕取模
//   （折 0 的验证窗口落在置换尾部）；
// - 其余位置为训练。
func (pl *Plan) build(perm []int) {
	n := pl.SampleCount
	pl.assign = make([][]Dataset, pl.Folds)
	for f := 0; f < pl.Folds; f++ {
		a := make([]Dataset, n)
		testStart := f * pl.TestSize
		testEnd := testStart + pl.TestSize
		// 仅交叉验证的末折延伸右边界；单折（标准切分）窗口恰为 TestSize。
		if pl.Folds > 1 && f == pl.Folds-1 {
			testEnd = n
		}
		for pos := testStart; pos < testEnd; pos++ {
			a[perm[pos]] = Test
		}
		for d := 1; d <= pl.DevSize; d++ {
			pos := ((testStart-d)%n + n) % n
			a[perm[pos]] = Dev
		}
		pl.assign[f] = a
	}
}

// Assign 返回原始样本下标 sample 在折 fold 内的归属。
func (pl *Plan) Assign(fold, sample int) Dataset {
	return pl.assign[fold][sample]
}
