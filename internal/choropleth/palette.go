// 包 choropleth：数量 → 分级色块，以及色块上的文字对比色
package choropleth

import (
	"errors"
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// 文档注释：样式表（可注入）
// 约束：Breaks 严格递增，len(Colors) == len(Breaks)+1；amount < Breaks[i] 落入第 i 档，≥ 最后一个断点落入末档。
// 颜色均为 #rrggbb。
type Palette struct {
	Breaks    []float64 `json:"breaks"`
	Colors    []string  `json:"colors"`
	NoData    string    `json:"no_data"`
	DarkText  string    `json:"dark_text"`
	LightText string    `json:"light_text"`
}

// DefaultPalette：<100、<1千、<1万、<10万、<100万、<1千万、<1亿、≥1亿
func DefaultPalette() Palette {
	return Palette{
		Breaks: []float64{100, 1_000, 10_000, 100_000, 1_000_000, 10_000_000, 100_000_000},
		Colors: []string{
			"#e6f7ff",
			"#b3e0ff",
			"#ccffcc",
			"#8cd68c",
			"#fff2b2",
			"#ffcc99",
			"#ff9999",
			"#b30000",
		},
		NoData:    "#e2e8f0",
		DarkText:  "#333333",
		LightText: "#FFFFFF",
	}
}

var errPalette = errors.New("invalid palette")

// Validate：检查断点递增、颜色数量与颜色格式
func (p Palette) Validate() error {
	if len(p.Colors) != len(p.Breaks)+1 {
		return fmt.Errorf("%w: %d colors for %d breaks", errPalette, len(p.Colors), len(p.Breaks))
	}
	for i := 1; i < len(p.Breaks); i++ {
		if !(p.Breaks[i] > p.Breaks[i-1]) {
			return fmt.Errorf("%w: breaks not increasing at %d", errPalette, i)
		}
	}
	for _, c := range append(append([]string{}, p.Colors...), p.NoData, p.DarkText, p.LightText) {
		if _, err := colorful.Hex(c); err != nil {
			return fmt.Errorf("%w: color %q: %v", errPalette, c, err)
		}
	}
	return nil
}
