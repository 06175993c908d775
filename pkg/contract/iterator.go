package contract

import "context"

// Iterator: 语料迭代契约（样本计数 + 可重放序列）。
// 约束：
// 1) Iterate 可重复调用：每次调用重新打开并读取源文件，
//    两次遍历产出的序列与顺序完全一致（两趟算法的前提）；
// 2) index 为全语料遭遇顺序，自 0 严格递增，跨文件连续；
// 3) 两趟之间源文件只读不变（由调用方保证）；
// 4) 无内部并发、不缓存整个语料。
type Iterator interface {
	// SampleCount 返回语料样本总数。首次调用完成一趟计数，
	// 其后可返回缓存值（源文件视为不可变）。
	SampleCount(ctx context.Context) (int, error)
	// Iterate 依次对每个样本调用 yield(index, text, meta)。
	// text 为样本原文（含起始行与正文行，末尾附一个空行分隔符）；
	// meta 为该样本之前新出现的注释元数据快照。
	// yield 返回非 nil 错误时中止遍历并原样返回该错误。
	Iterate(ctx context.Context, yield func(index int, text string, meta Metadata) error) error
}
