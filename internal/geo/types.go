// 包 geo：行政区与证物点位的统一数据结构、包围盒与路径投影
package geo

import (
	"strings"

	"github.com/paulmach/orb"
)

// Level 行政层级
type Level string

const (
	LevelProvince    Level = "province"
	LevelDistrict    Level = "district"
	LevelSubdistrict Level = "subdistrict"
)

// ParseLevel：解析层级文本，未知值返回 false
func ParseLevel(s string) (Level, bool) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelProvince:
		return LevelProvince, true
	case LevelDistrict:
		return LevelDistrict, true
	case LevelSubdistrict:
		return LevelSubdistrict, true
	}
	return "", false
}

// Depth：省=0，县=1，区=2
func (l Level) Depth() int {
	switch l {
	case LevelDistrict:
		return 1
	case LevelSubdistrict:
		return 2
	}
	return 0
}

// 文档注释：行政区
// 约束：ID 在同一层级内唯一；省级 ParentID 为空；几何统一为 MultiPolygon（Polygon 入库时包装为单元素）。
type Region struct {
	ID       string
	Name     string
	Level    Level
	ParentID string
	Geometry orb.MultiPolygon
}

// Category 证物大类
type Category string

const (
	CategoryFirearm  Category = "firearm"
	CategoryNarcotic Category = "narcotic"
)

// 文档注释：证物点位（一次查获记录）
// 约束：HasAmount=false 表示原始记录未提供有效数量，聚合时排除；名称字段用于与行政区按名称关联。
// 可选的 *ID 字段为上游已解析的行政区编号，存在时优先于名称匹配。
type POI struct {
	ID              string
	Category        Category
	Subtype         string
	Amount          float64
	HasAmount       bool
	Lat             float64
	Lng             float64
	HasCoords       bool // 经纬度均为有效数值
	ProvinceName    string
	DistrictName    string
	SubdistrictName string
	ProvinceID      string
	DistrictID      string
	SubdistrictID   string
}

// FirearmKey 枪支统一的有效类型键
const FirearmKey = "firearm"

// EffectiveType：按大类推导过滤键；毒品无子类时无法归类，返回 false
func (p POI) EffectiveType() (string, bool) {
	switch p.Category {
	case CategoryFirearm:
		return FirearmKey, true
	case CategoryNarcotic:
		if p.Subtype != "" {
			return p.Subtype, true
		}
	}
	return "", false
}
