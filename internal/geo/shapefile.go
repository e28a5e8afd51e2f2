package geo

import (
	"fmt"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
)

// 文档注释：读取 Shapefile 行政区边界
// 背景：官方边界常以 .shp/.dbf 发布；属性列名统一转小写后按 NormalizeRegion 的字段变体识别，
// idField 指定编号列（如 prov_code、amp_code、tam_code）。
// 约束：仅处理面要素，其它类型跳过；按环方向组装，顺时针环开启新面，逆时针环作为上一个面的洞。
func LoadShapefile(level Level, path, idField string) ([]Region, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	defer r.Close()
	fields := r.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToLower(strings.TrimSpace(f.String()))
	}
	idField = strings.ToLower(idField)
	var out []Region
	for r.Next() {
		n, shape := r.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		raw := make(map[string]any, len(names)+1)
		for i, name := range names {
			raw[name] = strings.TrimSpace(r.ReadAttribute(n, i))
		}
		if idField != "" && idField != "id" {
			raw["id"] = raw[idField]
		}
		reg, ok := NormalizeRegion(level, raw)
		if !ok {
			continue
		}
		reg.Geometry = shpToMulti(poly)
		out = append(out, reg)
	}
	if err := r.Err(); err != nil {
		return out, fmt.Errorf("read shapefile %s: %w", path, err)
	}
	return out, nil
}

func shpToMulti(p *shp.Polygon) orb.MultiPolygon {
	var mp orb.MultiPolygon
	for i := 0; i < int(p.NumParts); i++ {
		start := int(p.Parts[i])
		end := len(p.Points)
		if i+1 < int(p.NumParts) {
			end = int(p.Parts[i+1])
		}
		if start < 0 || end > len(p.Points) || start >= end {
			continue
		}
		ring := make(orb.Ring, 0, end-start)
		for _, pt := range p.Points[start:end] {
			ring = append(ring, orb.Point{pt.X, pt.Y})
		}
		if ring.Orientation() == orb.CW || len(mp) == 0 {
			mp = append(mp, orb.Polygon{ring})
			continue
		}
		last := len(mp) - 1
		mp[last] = append(mp[last], ring)
	}
	return mp
}
