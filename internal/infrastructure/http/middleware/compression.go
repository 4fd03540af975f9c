package middleware

import (
	"bytes"
	"compress/gzip"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
)

// Responses below this size ship uncompressed; the framing overhead
// outweighs the savings.
const compressMinBytes = 1024

// bufferedWriter captures the response body so the encoder can be applied
// once the payload size is known. Headers still go to the real writer.
type bufferedWriter struct {
	http.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (w *bufferedWriter) WriteHeader(code int) {
	w.status = code
}

func (w *bufferedWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

// Compress negotiates brotli or gzip per the Accept-Encoding header,
// honoring q-values. Brotli wins when the client accepts both. Level 6 is
// valid for both encoders and balances ratio against CPU.
func Compress(level int) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			encoding := negotiateEncoding(r.Header.Get("Accept-Encoding"))
			if encoding == "" || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			bw := &bufferedWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(bw, r)

			body := bw.buf.Bytes()
			if len(body) >= compressMinBytes {
				if compressed, err := encode(body, encoding, level); err == nil {
					w.Header().Set("Content-Encoding", encoding)
					w.Header().Add("Vary", "Accept-Encoding")
					body = compressed
				}
			}

			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			w.WriteHeader(bw.status)
			w.Write(body)
		})
	}
}

func encode(body []byte, encoding string, level int) ([]byte, error) {
	var out bytes.Buffer

	switch encoding {
	case "br":
		bw := brotli.NewWriterLevel(&out, level)
		if _, err := bw.Write(body); err != nil {
			return nil, err
		}
		if err := bw.Close(); err != nil {
			return nil, err
		}
	case "gzip":
		gw, err := gzip.NewWriterLevel(&out, level)
		if err != nil {
			return nil, err
		}
		if _, err := gw.Write(body); err != nil {
			return nil, err
		}
		if err := gw.Close(); err != nil {
			return nil, err
		}
	}

	return out.Bytes(), nil
}

// negotiateEncoding picks the strongest encoding the client accepts.
// Returns "" when neither brotli nor gzip qualifies.
func negotiateEncoding(acceptEncoding string) string {
	if acceptEncoding == "" {
		return ""
	}

	quality := parseAcceptEncoding(acceptEncoding)
	if q, ok := quality["br"]; ok && q > 0 {
		return "br"
	}
	if q, ok := quality["gzip"]; ok && q > 0 {
		return "gzip"
	}
	return ""
}

func parseAcceptEncoding(header string) map[string]float64 {
	encodings := make(map[string]float64)
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if name, q, found := strings.Cut(part, ";q="); found {
			if quality, err := strconv.ParseFloat(strings.TrimSpace(q), 64); err == nil {
				encodings[strings.TrimSpace(name)] = quality
			}
			continue
		}
		encodings[part] = 1.0
	}
	return encodings
}
