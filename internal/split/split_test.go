package split

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"conllsplit/pkg/contract"
	"conllsplit/plugins/iterator/conll"
)

// corpus 生成 n 个样本的 CONLL-U 风格语料（首样本前带 newdoc 元数据）。
func corpus(prefix string, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# newdoc id = %sdoc\n", prefix)
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "# sent_id = %s%d\n", prefix, i)
		fmt.Fprintf(&b, "# text = w%d\n1\tw%d\n\n", i, i)
	}
	return b.String()
}

func writeCorpus(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func newIter(t *testing.T, files ...string) contract.Iterator {
	t.Helper()
	it, err := conll.New(files, nil)
	require.NoError(t, err)
	return it
}

func readOut(t *testing.T, dir, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(b)
}

func countSamples(s string) int { return strings.Count(s, "# sent_id") }

var sentIDRe = regexp.MustCompile(`# sent_id = (\S+)`)

func sentIDs(s string) []string {
	var out []string
	for _, m := range sentIDRe.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1])
	}
	return out
}

// TestRunScenario 10 样本、test=0.3 dev=0.1 seed=42 → 3/1/6；重跑字节级一致
func TestRunScenario(t *testing.T) {
	src := writeCorpus(t, t.TempDir(), "corpus.conllu", corpus("s", 10))

	runOnce := func(outDir string) {
		s := int64(42)
		set := Settings{
			Test: 0.3, Dev: 0.1, Seed: &s,
			OutputFolder: outDir, OutputName: "corpus", OutputExt: ".conllu",
		}
		require.NoError(t, Run(context.Background(), newIter(t, src), set, nil))
	}

	out1 := t.TempDir()
	runOnce(out1)
	train := readOut(t, out1, "corpus_train.conllu")
	dev := readOut(t, out1, "corpus_dev.conllu")
	test := readOut(t, out1, "corpus_test.conllu")
	require.Equal(t, 6, countSamples(train))
	require.Equal(t, 1, countSamples(dev))
	require.Equal(t, 3, countSamples(test))

	// 划分完备：每个样本恰好出现一次
	all := append(append(sentIDs(train), sentIDs(dev)...), sentIDs(test)...)
	sort.Strings(all)
	want := []string{"s1", "s10", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9"}
	require.Equal(t, want, all)

	// 同参数重跑 → 字节级一致
	out2 := t.TempDir()
	runOnce(out2)
	require.Equal(t, train, readOut(t, out2, "corpus_train.conllu"))
	require.Equal(t, dev, readOut(t, out2, "corpus_dev.conllu"))
	require.Equal(t, test, readOut(t, out2, "corpus_test.conllu"))
}

// TestSeedMoves 仅换 seed：尺寸契约不变，具体样本指派变化
func TestSeedMoves(t *testing.T) {
	src := writeCorpus(t, t.TempDir(), "c.conllu", corpus("s", 40))

	testOf := func(sd int64) []string {
		out := t.TempDir()
		set := Settings{Test: 0.3, Seed: &sd, OutputFolder: out, OutputName: "c", OutputExt: ".conllu"}
		require.NoError(t, Run(context.Background(), newIter(t, src), set, nil))
		ids := sentIDs(readOut(t, out, "c_test.conllu"))
		require.Len(t, ids, 12)
		return ids
	}
	require.NotEqual(t, testOf(1), testOf(2))
}

// TestFolderConcat 目录来源按字典序拼接为单一语料
func TestFolderConcat(t *testing.T) {
	srcDir := t.TempDir()
	writeCorpus(t, srcDir, "a.conllu", corpus("a", 5))
	writeCorpus(t, srcDir, "b.conllu", corpus("b", 5))

	files, err := ResolveSource(srcDir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "a.conllu", filepath.Base(files[0]))

	it := newIter(t, files...)
	n, err := it.SampleCount(context.Background())
	require.NoError(t, err)
	require.Equal(t, 10, n)

	out := t.TempDir()
	set := Settings{Test: 0.3, OutputFolder: out, OutputName: filepath.Base(srcDir)}
	require.NoError(t, Run(context.Background(), it, set, nil))
	base := filepath.Base(srcDir)
	total := countSamples(readOut(t, out, base+"_train")) + countSamples(readOut(t, out, base+"_test"))
	require.Equal(t, 10, total)
}

// TestCrossValidation test=0.2 → 5 折；测试角色恰好覆盖全语料一次
func TestCrossValidation(t *testing.T) {
	src := writeCorpus(t, t.TempDir(), "c.conllu", corpus("s", 10))
	out := t.TempDir()
	s := int64(3)
	set := Settings{
		Test: 0.2, Seed: &s, CrossValidation: true,
		OutputFolder: out, OutputName: "c", OutputExt: ".conllu",
	}
	require.NoError(t, Run(context.Background(), newIter(t, src), set, nil))

	var testIDs []string
	for k := 1; k <= 5; k++ {
		train := readOut(t, out, fmt.Sprintf("c_train%d.conllu", k))
		test := readOut(t, out, fmt.Sprintf("c_test%d.conllu", k))
		require.Equal(t, 2, countSamples(test), "fold %d", k)
		require.Equal(t, 8, countSamples(train), "fold %d", k)
		testIDs = append(testIDs, sentIDs(test)...)
	}
	sort.Strings(testIDs)
	require.Equal(t, []string{"s1", "s10", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9"}, testIDs)

	// dev=0 → 不产生 dev 文件
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	for _, e := range entries {
		require.NotContains(t, e.Name(), "_dev")
	}
}

// TestParamErrorNoOutput 参数错误先于任何输出副作用
func TestParamErrorNoOutput(t *testing.T) {
	src := writeCorpus(t, t.TempDir(), "c.conllu", corpus("s", 10))
	out := filepath.Join(t.TempDir(), "never-created")
	set := Settings{Test: 0.5, Dev: 0.5, OutputFolder: out, OutputName: "c", OutputExt: ".conllu"}
	err := Run(context.Background(), newIter(t, src), set, nil)
	require.ErrorIs(t, err, contract.ErrParamInvalid)
	_, statErr := os.Stat(out)
	require.True(t, os.IsNotExist(statErr), "no output may be created on parameter error")
}

// TestEmptyCorpus 0 样本 → ErrEmptyCorpus
func TestEmptyCorpus(t *testing.T) {
	src := writeCorpus(t, t.TempDir(), "c.conllu", "just text\nno markers\n")
	set := Settings{Test: 0.3, OutputFolder: t.TempDir(), OutputName: "c"}
	err := Run(context.Background(), newIter(t, src), set, nil)
	require.ErrorIs(t, err, contract.ErrEmptyCorpus)
}

// TestMetadataRoundTrip 元数据在每个相关输出流上恰好重放一次；
// omit 模式仅保留样本自身（含 sent_id 起始行）
func TestMetadataRoundTrip(t *testing.T) {
	src := writeCorpus(t, t.TempDir(), "c.conllu", corpus("s", 10))

	out := t.TempDir()
	s := int64(42)
	set := Settings{Test: 0.3, Dev: 0.1, Seed: &s, OutputFolder: out, OutputName: "c", OutputExt: ".conllu"}
	require.NoError(t, Run(context.Background(), newIter(t, src), set, nil))
	for _, name := range []string{"c_train.conllu", "c_dev.conllu", "c_test.conllu"} {
		got := readOut(t, out, name)
		require.Equal(t, 1, strings.Count(got, "# newdoc id = sdoc"), "%s must carry the doc metadata exactly once", name)
	}

	out2 := t.TempDir()
	set.OutputFolder = out2
	set.OmitMetadata = true
	require.NoError(t, Run(context.Background(), newIter(t, src), set, nil))
	for _, name := range []string{"c_train.conllu", "c_dev.conllu", "c_test.conllu"} {
		got := readOut(t, out2, name)
		require.NotContains(t, got, "# newdoc")
		require.Greater(t, countSamples(got), 0)
	}
}

// fakeIter: 契约桩，用于覆盖迭代器多态与不变量检查。
type fakeIter struct {
	count int
	yield int
}

func (f *fakeIter) SampleCount(ctx context.Context) (int, error) { return f.count, nil }

func (f *fakeIter) Iterate(ctx context.Context, yield func(int, string, contract.Metadata) error) error {
	for i := 0; i < f.yield; i++ {
		if err := yield(i, fmt.Sprintf("# sent_id = f%d\n1\tx\n\n", i), contract.NewMetadata()); err != nil {
			return err
		}
	}
	return nil
}

// TestIteratorSubstitution 任何满足契约的迭代器实现皆可替换
func TestIteratorSubstitution(t *testing.T) {
	out := t.TempDir()
	set := Settings{Test: 0.3, OutputFolder: out, OutputName: "f"}
	require.NoError(t, Run(context.Background(), &fakeIter{count: 10, yield: 10}, set, nil))
	require.Equal(t, 3, countSamples(readOut(t, out, "f_test")))
}

// TestPassCountMismatch 两趟样本数不一致 → 不变量违例
func TestPassCountMismatch(t *testing.T) {
	set := Settings{Test: 0.3, OutputFolder: t.TempDir(), OutputName: "f"}
	err := Run(context.Background(), &fakeIter{count: 10, yield: 7}, set, nil)
	require.ErrorIs(t, err, contract.ErrInvariantViolation)
}

// TestResolveSource 文件/目录/缺失路径
func TestResolveSource(t *testing.T) {
	dir := t.TempDir()
	f := writeCorpus(t, dir, "only.conllu", "x\n")

	got, err := ResolveSource(f)
	require.NoError(t, err)
	require.Equal(t, []string{f}, got)

	// 子目录不递归、忽略
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	got, err = ResolveSource(dir)
	require.NoError(t, err)
	require.Equal(t, []string{f}, got)

	_, err = ResolveSource(filepath.Join(dir, "missing"))
	require.Error(t, err)

	empty := t.TempDir()
	_, err = ResolveSource(empty)
	require.ErrorIs(t, err, contract.ErrParamInvalid)
}

// TestDeriveOutputName 基名/扩展名推导
func TestDeriveOutputName(t *testing.T) {
	name, ext := DeriveOutputName("/data/corpus.conllu", "")
	require.Equal(t, "corpus", name)
	require.Equal(t, ".conllu", ext)

	name, ext = DeriveOutputName("/data/folder", "")
	require.Equal(t, "folder", name)
	require.Equal(t, "", ext)

	name, ext = DeriveOutputName("/data/x.conllu", "custom.txt")
	require.Equal(t, "custom", name)
	require.Equal(t, ".txt", ext)

	name, ext = DeriveOutputName("/data/x.conllu", "bare")
	require.Equal(t, "bare", name)
	require.Equal(t, "", ext)
}
