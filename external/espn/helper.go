package espn

import (
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/fasthttp"
)

func isCircuitFailure(err error) bool {
	return crerr.Is(err, errESPNTransient)
}

func isTransientStatus(status int) bool {
	return status == fasthttp.StatusRequestTimeout ||
		status == fasthttp.StatusTooManyRequests ||
		status >= fasthttp.StatusInternalServerError
}

func abbreviateBody(raw []byte) string {
	text := strings.TrimSpace(string(raw))
	if len(text) <= 256 {
		return text
	}
	return text[:256] + "...(truncated)"
}
