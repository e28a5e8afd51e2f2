// 包 logger：http访问日志中间件，统一记录外部访问的关键维度（方法、路径、状态、耗时、字节数、远端地址、请求编号）
package logger

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oschwald/geoip2-golang"
)

type ctxKey int

const requestIDKey ctxKey = iota

// RequestIDHeader 请求编号响应头；请求已携带时沿用
const RequestIDHeader = "X-Request-Id"

// statusWriter：包装 ResponseWriter 以捕获状态码与写出字节数
// 背景：标准库不暴露已写状态，需中间件层统计响应信息
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

// WriteHeader：捕获状态码并透传写头
func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Write：累加写出字节数并透传写入
func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// RequestID：取上下文中的请求编号，没有时返回空
func RequestID(ctx context.Context) string {
	s, _ := ctx.Value(requestIDKey).(string)
	return s
}

// OpenGeoIP：GEOIP_DB 指向 GeoLite2/GeoIP2 Country 库时打开，未配置或打开失败返回 nil
func OpenGeoIP() *geoip2.Reader {
	p := os.Getenv("GEOIP_DB")
	if p == "" {
		return nil
	}
	r, err := geoip2.Open(p)
	if err != nil {
		L().Warn("geoip_open_error", "path", p, "err", err)
		return nil
	}
	L().Info("geoip_ready", "path", p)
	return r
}

// AccessMiddleware：生成访问日志中间件
// 为什么：统一记录外部访问，便于问题排查与性能监控；不读取请求体，避免性能与隐私风险
// 约束：每个请求分配 uuid 请求编号写入上下文与响应头；gr 非空时附带客户端国家代码
func AccessMiddleware(l *slog.Logger, gr *geoip2.Reader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := r.Header.Get(RequestIDHeader)
			if rid == "" {
				rid = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, rid)
			sw := &statusWriter{ResponseWriter: w, status: 200}
			start := time.Now()
			next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), requestIDKey, rid)))
			dur := time.Since(start)
			ip := ClientIP(r)
			attrs := []any{
				"request_id", rid,
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"bytes", sw.bytes,
				"duration_ms", dur.Milliseconds(),
				"ip", ip,
			}
			if cc := countryOf(gr, ip); cc != "" {
				attrs = append(attrs, "country", cc)
			}
			l.Debug("http_access", attrs...)
		})
	}
}

// ClientIP：优先常见反向代理头，其次 RemoteAddr
func ClientIP(r *http.Request) string {
	h := r.Header
	if x := h.Get("x-forwarded-for"); x != "" {
		return strings.TrimSpace(strings.Split(x, ",")[0])
	}
	if x := h.Get("x-real-ip"); x != "" {
		return x
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func countryOf(gr *geoip2.Reader, ip string) string {
	if gr == nil {
		return ""
	}
	addr := net.ParseIP(ip)
	if addr == nil {
		return ""
	}
	rec, err := gr.Country(addr)
	if err != nil {
		return ""
	}
	return rec.Country.IsoCode
}
