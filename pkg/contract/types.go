package contract

// AttrName: 元数据属性名（注释行中 '=' 左侧，去首尾空白后的文本）。
type AttrName string

// MetadataValue: 单条元数据取值。
// 约束：
// - Text 为源文件整行原文（不含行尾换行），输出时原样重现；
// - Line 为跨全部输入文件累计的全局行号（0 起），用于稳定的重放顺序；
// - Value 为 '=' 右侧文本；无 '=' 的裸注释行 Value 为空串。
type MetadataValue struct {
	Value string
	Text  string
	Line  int
}

// Metadata: 保序的元数据属性表（按首次出现顺序）。
// 核心流程只比较与重放键值，不解析属性语义（newdoc/newpar 等
// 文档/段落标记与其他注释属性同等对待）。
type Metadata struct {
	keys []AttrName
	m    map[AttrName]MetadataValue
}

// NewMetadata 创建空表。
func NewMetadata() Metadata {
	return Metadata{m: make(map[AttrName]MetadataValue)}
}

// Set 写入或覆盖一个属性；首次写入时记录顺序。
func (md *Metadata) Set(name AttrName, v MetadataValue) {
	if md.m == nil {
		md.m = make(map[AttrName]MetadataValue)
	}
	if _, ok := md.m[name]; !ok {
		md.keys = append(md.keys, name)
	}
	md.m[name] = v
}

// Get 读取属性。
func (md Metadata) Get(name AttrName) (MetadataValue, bool) {
	v, ok := md.m[name]
	return v, ok
}

// Len 返回属性数。
func (md Metadata) Len() int { return len(md.keys) }

// Keys 返回属性名（首次出现顺序）的副本。
func (md Metadata) Keys() []AttrName {
	out := make([]AttrName, len(md.keys))
	copy(out, md.keys)
	return out
}

// Clone 返回独立副本。
func (md Metadata) Clone() Metadata {
	out := Metadata{
		keys: make([]AttrName, len(md.keys)),
		m:    make(map[AttrName]MetadataValue, len(md.m)),
	}
	copy(out.keys, md.keys)
	for k, v := range md.m {
		out.m[k] = v
	}
	return out
}

// Update 用 in 的全部条目覆盖本表（保序合并）。
func (md *Metadata) Update(in Metadata) {
	for _, k := range in.keys {
		md.Set(k, in.m[k])
	}
}

// DiffAndUpdate 返回 in 中相对本表新增或变化的条目（按全局行号升序），
// 并将本表同步到 in 的状态。取值比较为整值比较（Value/Text/Line）：
// 同名属性在更靠后的行重复出现即视为变化，会被再次重放。
// 该操作是“每条文档/段落元数据行在每个输出流上恰好重放一次”的机制。
func (md *Metadata) DiffAndUpdate(in Metadata) []MetadataValue {
	var diff []MetadataValue
	for _, k := range in.keys {
		nv := in.m[k]
		if ov, ok := md.m[k]; !ok || ov != nv {
			diff = append(diff, nv)
		}
	}
	sortByLine(diff)
	md.Update(in)
	return diff
}

// sortByLine: 小切片插入排序，按 Line 升序稳定排列。
func sortByLine(vs []MetadataValue) {
	for i := 1; i < len(vs); i++ {
		for j := i; j > 0 && vs[j-1].Line > vs[j].Line; j-- {
			vs[j-1], vs[j] = vs[j], vs[j-1]
		}
	}
}
