package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Dataset 一次完整加载的行政区与点位
type Dataset struct {
	Provinces    []Region
	Districts    []Region
	Subdistricts []Region
	POIs         []POI
}

// Regions：按层级返回行政区切片
func (d *Dataset) Regions(l Level) []Region {
	switch l {
	case LevelDistrict:
		return d.Districts
	case LevelSubdistrict:
		return d.Subdistricts
	}
	return d.Provinces
}

// 各层级原始记录中可能出现的字段名（按优先级）
var (
	nameKeys = map[Level][]string{
		LevelProvince:    {"province_name", "prov_namt", "name"},
		LevelDistrict:    {"district_name", "amphoe_t", "amp_namt", "name"},
		LevelSubdistrict: {"subdistrict_name", "tambon_t", "tam_namt", "name"},
	}
	parentKeys = map[Level][]string{
		LevelDistrict:    {"province_id", "prov_id", "prov_code"},
		LevelSubdistrict: {"district_id", "amphoe_id", "amp_code"},
	}
	geometryKeys = []string{"geometry", "geom"}
)

// 文档注释：原始行政区记录归一化
// 背景：上游字段命名不一致（province_id/prov_id、geometry/geom、district_name/amphoe_t 等），
// 在入口处统一为 Region，聚合核心不感知字段变体。
// 约束：缺少 id 的记录返回 false；名称缺失时回退为 "<level> <id>"；几何无法解析时为空几何（保留区域，路径为空）。
func NormalizeRegion(level Level, raw map[string]any) (Region, bool) {
	id := toID(raw["id"])
	if id == "" {
		return Region{}, false
	}
	r := Region{ID: id, Level: level}
	r.Name = firstString(raw, nameKeys[level]...)
	if r.Name == "" {
		r.Name = string(level) + " " + id
	}
	for _, k := range parentKeys[level] {
		if v := toID(raw[k]); v != "" {
			r.ParentID = v
			break
		}
	}
	for _, k := range geometryKeys {
		if g, ok := raw[k]; ok && g != nil {
			r.Geometry = ParseGeometry(g)
			break
		}
	}
	return r, true
}

// 文档注释：原始证物记录归一化
// 约束：大类无法识别的记录返回 false；数量缺失、非数值、负数或非有限值时 HasAmount=false；
// 经纬度任一缺失或越界时 HasCoords=false，点位仍参与按名称的汇总，但不上图。
func NormalizePOI(raw map[string]any) (POI, bool) {
	var p POI
	switch strings.ToLower(strings.TrimSpace(getStr(raw, "category"))) {
	case "อาวุธปืน", "firearm", "gun":
		p.Category = CategoryFirearm
	case "ยาเสพติด", "narcotic", "drug":
		p.Category = CategoryNarcotic
	default:
		return POI{}, false
	}
	p.ID = toID(raw["id"])
	if p.Category == CategoryNarcotic {
		p.Subtype = firstString(raw, "drug_type", "subtype")
	} else {
		p.Subtype = firstString(raw, "subtype", "subcategory")
	}
	if a, ok := toNumber(raw["amount"]); ok && a >= 0 {
		p.Amount = a
		p.HasAmount = true
	}
	lat, okLat := toNumber(firstValue(raw, "latitude", "lat"))
	lng, okLng := toNumber(firstValue(raw, "longitude", "lng", "lon"))
	if okLat && okLng && lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180 {
		p.Lat, p.Lng, p.HasCoords = lat, lng, true
	}
	p.ProvinceName = firstString(raw, "province", "province_name")
	p.DistrictName = firstString(raw, "amphoe", "district_name", "district")
	p.SubdistrictName = firstString(raw, "tambon", "subdistrict_name", "subdistrict")
	p.ProvinceID = toID(raw["province_id"])
	p.DistrictID = toID(raw["district_id"])
	p.SubdistrictID = toID(raw["subdistrict_id"])
	return p, true
}

// 文档注释：几何解析（GeoJSON Polygon/MultiPolygon）
// 约束：接受 map、JSON 文本或字节；先检查原始顶点，全部为有限的 [lng, lat] 时走 orb/geojson 严格解码，
// 否则逐顶点容错解析并跳过畸形顶点（null、单维、非数值）；其它几何类型返回空。
func ParseGeometry(v any) orb.MultiPolygon {
	switch x := v.(type) {
	case orb.MultiPolygon:
		return x
	case orb.Polygon:
		return orb.MultiPolygon{x}
	case string:
		return parseGeometryBytes([]byte(x))
	case []byte:
		return parseGeometryBytes(x)
	case json.RawMessage:
		return parseGeometryBytes(x)
	case map[string]any:
		return parseGeometryMap(x)
	}
	return nil
}

func parseGeometryBytes(b []byte) orb.MultiPolygon {
	if len(b) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return parseGeometryMap(m)
}

func parseGeometryMap(g map[string]any) orb.MultiPolygon {
	if !coordsClean(g) {
		return walkGeometry(g)
	}
	b, err := json.Marshal(g)
	if err != nil {
		return walkGeometry(g)
	}
	gg, err := geojson.UnmarshalGeometry(b)
	if err != nil {
		return walkGeometry(g)
	}
	if mp, ok := toMulti(gg.Geometry()); ok {
		return mp
	}
	return nil
}

// coordsClean：所有顶点均为至少两维的有限数值；严格解码会把 null 或单维顶点补零，需先排除
func coordsClean(g map[string]any) bool {
	depth := 0
	switch strings.ToLower(getStr(g, "type")) {
	case "polygon":
		depth = 2
	case "multipolygon":
		depth = 3
	default:
		return false
	}
	return nestedClean(g["coordinates"], depth)
}

func nestedClean(v any, depth int) bool {
	if depth == 0 {
		_, ok := vertexOf(v)
		return ok
	}
	arr, ok := v.([]any)
	if !ok {
		return false
	}
	for _, e := range arr {
		if !nestedClean(e, depth-1) {
			return false
		}
	}
	return true
}

// vertexOf：[lng, lat, ...] → Point；多余维度忽略
func vertexOf(v any) (orb.Point, bool) {
	vv, ok := v.([]any)
	if !ok || len(vv) < 2 {
		return orb.Point{}, false
	}
	lon, ok1 := vv[0].(float64)
	lat, ok2 := vv[1].(float64)
	if !ok1 || !ok2 || !isFinite(lon) || !isFinite(lat) {
		return orb.Point{}, false
	}
	return orb.Point{lon, lat}, true
}

func toMulti(g orb.Geometry) (orb.MultiPolygon, bool) {
	switch x := g.(type) {
	case orb.MultiPolygon:
		return x, true
	case orb.Polygon:
		return orb.MultiPolygon{x}, true
	}
	return nil, false
}

// walkGeometry：容错解析，非数值或不足两维的顶点被跳过
func walkGeometry(g map[string]any) orb.MultiPolygon {
	coords, ok := g["coordinates"].([]any)
	if !ok {
		return nil
	}
	switch strings.ToLower(getStr(g, "type")) {
	case "polygon":
		if poly := walkPolygon(coords); len(poly) > 0 {
			return orb.MultiPolygon{poly}
		}
	case "multipolygon":
		var mp orb.MultiPolygon
		for _, part := range coords {
			if arr, ok := part.([]any); ok {
				if poly := walkPolygon(arr); len(poly) > 0 {
					mp = append(mp, poly)
				}
			}
		}
		return mp
	}
	return nil
}

func walkPolygon(rings []any) orb.Polygon {
	var poly orb.Polygon
	for _, ring := range rings {
		arr, ok := ring.([]any)
		if !ok {
			continue
		}
		var rr orb.Ring
		for _, p := range arr {
			if pt, ok := vertexOf(p); ok {
				rr = append(rr, pt)
			}
		}
		if len(rr) > 0 {
			poly = append(poly, rr)
		}
	}
	return poly
}

// 文档注释：从数据目录加载快照
// 约束：约定文件名 provinces / districts / subdistricts（.geojson 为 FeatureCollection，.json 为记录数组）
// 与 pois.json；缺失文件视为空集合，其它读取或解析错误返回。
func LoadDir(dir string) (*Dataset, error) {
	var d Dataset
	var err error
	if d.Provinces, err = loadRegionFile(dir, LevelProvince, "provinces"); err != nil {
		return nil, err
	}
	if d.Districts, err = loadRegionFile(dir, LevelDistrict, "districts"); err != nil {
		return nil, err
	}
	if d.Subdistricts, err = loadRegionFile(dir, LevelSubdistrict, "subdistricts"); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(dir, "pois.json"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read pois: %w", err)
	}
	if err == nil {
		if d.POIs, err = DecodePOIs(b); err != nil {
			return nil, fmt.Errorf("decode pois: %w", err)
		}
	}
	return &d, nil
}

func loadRegionFile(dir string, level Level, base string) ([]Region, error) {
	for _, ext := range []string{".geojson", ".json"} {
		fp := filepath.Join(dir, base+ext)
		b, err := os.ReadFile(fp)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fp, err)
		}
		var regions []Region
		if ext == ".geojson" {
			regions, err = DecodeFeatureCollection(level, b)
		} else {
			regions, err = DecodeRegions(level, b)
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", fp, err)
		}
		return regions, nil
	}
	return nil, nil
}

// DecodeRegions：解析记录数组（REST 接口形态）
func DecodeRegions(level Level, b []byte) ([]Region, error) {
	var raw []map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	out := make([]Region, 0, len(raw))
	for _, r := range raw {
		if reg, ok := NormalizeRegion(level, r); ok {
			out = append(out, reg)
		}
	}
	return out, nil
}

// 文档注释：解析 GeoJSON FeatureCollection
// 约束：properties 作为原始记录字段；几何保留原始形态，经 ParseGeometry 做顶点检查后再解码。
func DecodeFeatureCollection(level Level, b []byte) ([]Region, error) {
	var gj struct {
		Features []struct {
			ID         any            `json:"id"`
			Properties map[string]any `json:"properties"`
			Geometry   map[string]any `json:"geometry"`
		} `json:"features"`
	}
	if err := json.Unmarshal(b, &gj); err != nil {
		return nil, err
	}
	out := make([]Region, 0, len(gj.Features))
	for _, f := range gj.Features {
		raw := f.Properties
		if raw == nil {
			raw = map[string]any{}
		}
		if _, ok := raw["id"]; !ok {
			raw["id"] = f.ID
		}
		if f.Geometry != nil {
			raw["geometry"] = f.Geometry
		}
		if reg, ok := NormalizeRegion(level, raw); ok {
			out = append(out, reg)
		}
	}
	return out, nil
}

// DecodePOIs：解析证物记录数组，无法归类的记录被丢弃
func DecodePOIs(b []byte) ([]POI, error) {
	var raw []map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	out := make([]POI, 0, len(raw))
	for _, r := range raw {
		if p, ok := NormalizePOI(r); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func getStr(m map[string]any, k string) string {
	if v, ok := m[k].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v := getStr(m, k); v != "" {
			return v
		}
	}
	return ""
}

func firstValue(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// toID：数字或文本编号统一为文本；整数值不带小数点
func toID(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	}
	return ""
}

func toNumber(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if !isFinite(f) {
		return 0, false
	}
	return f, true
}
