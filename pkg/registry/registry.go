// Package registry 持有具名迭代器工厂（显式、零反射）。
// Splitter 只依赖 contract.Iterator 能力；任何满足契约的实现
// 注册到此表后即可经配置 iterator.name 替换默认实现。
package registry

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"conllsplit/internal/config"
	"conllsplit/pkg/contract"
	"conllsplit/plugins/iterator/conll"
)

// NewIterator 工厂签名：输入文件列表 + 原样 YAML Options。
type NewIterator func(files []string, opts *yaml.Node) (contract.Iterator, error)

// Iterator 工厂注册表。
var Iterator = map[string]NewIterator{
	// conll: CONLL-U 风格语料迭代器
	"conll": func(files []string, opts *yaml.Node) (contract.Iterator, error) {
		var o conll.Options
		if err := config.StrictDecode(opts, &o); err != nil {
			return nil, fmt.Errorf("%w: iterator options: %v", contract.ErrParamInvalid, err)
		}
		return conll.New(files, &o)
	},
}

// Build 按名称装配迭代器；未注册的名称报参数错误。
func Build(name string, files []string, opts *yaml.Node) (contract.Iterator, error) {
	factory, ok := Iterator[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown iterator %q", contract.ErrParamInvalid, name)
	}
	return factory(files, opts)
}
