package contract

import "errors"

// 最小错误分类（哨兵）。
var (
	// ErrParamInvalid: 参数校验失败（比例越界、折数不足、无输入文件等）。
	ErrParamInvalid = errors.New("param invalid")
	// ErrEmptyCorpus: 语料为空（计数趟得到 0 个样本）。
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrInvariantViolation: 领域不变量违例（如两趟样本数不一致）。
	ErrInvariantViolation = errors.New("invariant violation")
)
