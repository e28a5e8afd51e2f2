package choropleth

import (
	"math"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// NoDataIndex 负数、NaN、±Inf 所在档位
const NoDataIndex = -1

// Bucket 分级结果
type Bucket struct {
	Index int    `json:"index"`
	Color string `json:"color"`
}

// Classifier 绑定一份样式表的分级器，零值不可用
type Classifier struct {
	p Palette
}

// New：样式表需先通过 Validate
func New(p Palette) (*Classifier, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{p: p}, nil
}

// Default 使用 DefaultPalette 的分级器
func Default() *Classifier {
	return &Classifier{p: DefaultPalette()}
}

// Palette 当前样式表（图例）
func (c *Classifier) Palette() Palette { return c.p }

// 文档注释：数量 → 档位
// 约束：纯函数，对非负数单调不减；负数与非有限值返回 NoData 档。
func (c *Classifier) Classify(amount float64) Bucket {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return Bucket{Index: NoDataIndex, Color: c.p.NoData}
	}
	i := sort.Search(len(c.p.Breaks), func(i int) bool { return amount < c.p.Breaks[i] })
	return Bucket{Index: i, Color: c.p.Colors[i]}
}

// LightThreshold HSP 亮度阈值，高于此值视为浅色背景
const LightThreshold = 127.5

// 文档注释：背景色是否为浅色（HSP 感知亮度）
// 约束：sqrt(0.299R² + 0.587G² + 0.114B²) > 127.5（0–255 通道）；无法解析的颜色按浅色处理。
func IsLight(hex string) bool {
	col, err := colorful.Hex(hex)
	if err != nil {
		return true
	}
	r, g, b := col.RGB255()
	rf, gf, bf := float64(r), float64(g), float64(b)
	hsp := math.Sqrt(0.299*rf*rf + 0.587*gf*gf + 0.114*bf*bf)
	return hsp > LightThreshold
}

// LabelColor：浅色背景用深色字，深色背景用浅色字
func (c *Classifier) LabelColor(background string) string {
	if IsLight(background) {
		return c.p.DarkText
	}
	return c.p.LightText
}
