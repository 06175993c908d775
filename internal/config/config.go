// Package config 提供运行期只读配置：默认值 ← YAML 文件 ← CLI 旗标，
// 后者覆盖前者（Merge 规则：零值/空值不覆盖；显式零经指针表达）。
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"conllsplit/pkg/contract"
)

// Config: 一次解析，运行期不变。YAML 使用 snake_case；未知字段解析期失败。
type Config struct {
	OutputFolder    string   `yaml:"output_folder"`
	Test            *float64 `yaml:"test"`
	Dev             *float64 `yaml:"dev"`
	Seed            *int64   `yaml:"seed"`
	CrossValidation *bool    `yaml:"cross_validation"`
	OmitMetadata    *bool    `yaml:"omit_metadata"`
	OutputFilename  string   `yaml:"output_filename"`

	Iterator Iterator `yaml:"iterator"`
	Logging  Logging  `yaml:"logging"`
}

// Iterator: 迭代器实现选择与其原样 Options 子树（经注册表工厂解码）。
type Iterator struct {
	// Name: 注册表中的实现名；空则默认 "conll"。
	Name string `yaml:"name"`
	// Options: 原样 YAML 节点，交由工厂严格解码。
	Options *yaml.Node `yaml:"options"`
}

// UnmarshalYAML 手工解析本段：KnownFields 的严格检查会下探进原样
// Options 子树并拒绝其中的任意键，故此处自行校验已知字段，
// 并把 options 节点原样保留给工厂解码。
func (it *Iterator) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: iterator must be a mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		switch k.Value {
		case "name":
			if err := v.Decode(&it.Name); err != nil {
				return err
			}
		case "options":
			node := *v
			it.Options = &node
		default:
			return fmt.Errorf("line %d: field %s not found in type config.Iterator", k.Line, k.Value)
		}
	}
	return nil
}

// Logging: 仅日志等级可配置。
type Logging struct {
	Level string `yaml:"level"`
}

// Defaults 返回带安全默认值的 Config。
// omit_metadata 默认 false：始终写出文档/段落元数据，除非显式关闭。
func Defaults() Config {
	test := 0.3
	dev := 0.0
	return Config{
		OutputFolder: ".",
		Test:         &test,
		Dev:          &dev,
		Iterator:     Iterator{Name: "conll"},
		Logging:      Logging{Level: "info"},
	}
}

// Load 从 YAML 文件解析 Config（KnownFields：拒绝未知字段）。
func Load(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Merge 按优先级合并（over 覆盖 base）。标量为替换，不做深度合并；
// 指针字段以非 nil 表示“存在”，使显式 0/false 也能覆盖。
func Merge(base, over Config) Config {
	out := base
	if strings.TrimSpace(over.OutputFolder) != "" {
		out.OutputFolder = over.OutputFolder
	}
	if over.Test != nil {
		out.Test = over.Test
	}
	if over.Dev != nil {
		out.Dev = over.Dev
	}
	if over.Seed != nil {
		out.Seed = over.Seed
	}
	if over.CrossValidation != nil {
		out.CrossValidation = over.CrossValidation
	}
	if over.OmitMetadata != nil {
		out.OmitMetadata = over.OmitMetadata
	}
	if strings.TrimSpace(over.OutputFilename) != "" {
		out.OutputFilename = over.OutputFilename
	}
	if strings.TrimSpace(over.Iterator.Name) != "" {
		out.Iterator.Name = over.Iterator.Name
	}
	if over.Iterator.Options != nil {
		out.Iterator.Options = over.Iterator.Options
	}
	if strings.TrimSpace(over.Logging.Level) != "" {
		out.Logging.Level = over.Logging.Level
	}
	return out
}

// Validate 在任何 I/O 副作用之前校验参数。
func Validate(cfg Config) error {
	t, d := 0.0, 0.0
	if cfg.Test != nil {
		t = *cfg.Test
	}
	if cfg.Dev != nil {
		d = *cfg.Dev
	}
	if t < 0 || t >= 1 {
		return fmt.Errorf("%w: test proportion %v out of [0,1)", contract.ErrParamInvalid, t)
	}
	if d < 0 || d >= 1 {
		return fmt.Errorf("%w: dev proportion %v out of [0,1)", contract.ErrParamInvalid, d)
	}
	if t+d >= 1 {
		return fmt.Errorf("%w: test+dev proportions sum to %v (must be < 1)", contract.ErrParamInvalid, t+d)
	}
	if strings.TrimSpace(cfg.Iterator.Name) == "" {
		return fmt.Errorf("%w: iterator name empty", contract.ErrParamInvalid)
	}
	return nil
}

// StrictDecode 将原样 YAML 节点严格解码到 v（未知字段报错）。
// n 为 nil 时保持 v 零值（默认选项）。
func StrictDecode(n *yaml.Node, v any) error {
	if n == nil {
		return nil
	}
	b, err := yaml.Marshal(n)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(strings.NewReader(string(b)))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}
