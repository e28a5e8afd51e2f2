// 包 cluster：点位聚合图标的汇总（数量、半径档、配色）与按瓦片分组
package cluster

import (
	"evimap/internal/choropleth"
	"evimap/internal/geo"
)

// RadiusTier 聚合图标尺寸档
type RadiusTier string

const (
	TierSmall  RadiusTier = "small"
	TierMedium RadiusTier = "medium"
	TierLarge  RadiusTier = "large"
)

// TierFor：<10 小，10–99 中，≥100 大
func TierFor(count int) RadiusTier {
	switch {
	case count >= 100:
		return TierLarge
	case count >= 10:
		return TierMedium
	}
	return TierSmall
}

// Diameter 图标直径（像素）
func (t RadiusTier) Diameter() int {
	switch t {
	case TierLarge:
		return 50
	case TierMedium:
		return 40
	}
	return 30
}

// Summary 单个聚合的展示参数
type Summary struct {
	Count       int        `json:"count"`
	TotalAmount float64    `json:"total_amount"`
	RadiusTier  RadiusTier `json:"radius_tier"`
	Diameter    int        `json:"diameter"`
	FontSize    float64    `json:"font_size"`
	Fill        string     `json:"fill"`
	LabelColor  string     `json:"label_color"`
}

// 文档注释：汇总一个聚合内的点位
// 约束：未提供有效数量的成员计入 Count，数量按 0 计；Fill 为 TotalAmount 的分级色，LabelColor 与 Fill 保持对比。
func Summarize(members []geo.POI, c *choropleth.Classifier) Summary {
	var s Summary
	s.Count = len(members)
	for _, m := range members {
		if m.HasAmount {
			s.TotalAmount += m.Amount
		}
	}
	s.RadiusTier = TierFor(s.Count)
	s.Diameter = s.RadiusTier.Diameter()
	s.FontSize = float64(s.Diameter) / 2.8
	s.Fill = c.Classify(s.TotalAmount).Color
	s.LabelColor = c.LabelColor(s.Fill)
	return s
}
