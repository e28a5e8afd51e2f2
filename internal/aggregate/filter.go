// 包 aggregate：按行政层级汇总证物数量（区域分级着色的数据来源）
package aggregate

import (
	"sort"
	"strings"
)

// FilterSet 有效类型 → 是否勾选；请求内只读
type FilterSet map[string]bool

// ParseFilters：解析逗号分隔的有效类型列表，如 "firearm,meth"
func ParseFilters(s string) FilterSet {
	fs := FilterSet{}
	for _, part := range strings.Split(s, ",") {
		k := strings.TrimSpace(part)
		if k != "" {
			fs[k] = true
		}
	}
	return fs
}

// Active：未出现的键视为未勾选
func (f FilterSet) Active(key string) bool { return key != "" && f[key] }

// Key：勾选项排序拼接，用作缓存键
func (f FilterSet) Key() string {
	keys := make([]string, 0, len(f))
	for k, on := range f {
		if on {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}
