// Package uri resolves next-hop paths returned by the handshake endpoint.
package uri

import (
	"net/url"
	"strings"
)

// IsAbsolute reports whether candidate already carries an http or https scheme.
func IsAbsolute(candidate string) bool {
	lower := strings.ToLower(candidate)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Resolve returns candidate unchanged when it is absolute; otherwise it joins
// candidate onto the endpoint's directory (the endpoint path minus its last
// segment). A leading-slash candidate that already lives under that directory
// is taken from the host root instead, so "/private/next" against
// ".../private/interview.php" is not prefixed twice. Query strings and
// fragments of the endpoint are ignored.
func Resolve(candidate, endpoint string) string {
	if IsAbsolute(candidate) {
		return candidate
	}
	dir := Dir(endpoint)
	rel := strings.TrimLeft(candidate, "/")
	if strings.HasPrefix(candidate, "/") {
		if origin, dirPath, ok := splitOrigin(dir); ok && underDir("/"+rel, dirPath) {
			return origin + "/" + rel
		}
	}
	return dir + "/" + rel
}

// splitOrigin separates scheme://host from the path of an absolute URL.
func splitOrigin(raw string) (origin, path string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", "", false
	}
	return u.Scheme + "://" + u.Host, u.EscapedPath(), true
}

// underDir reports whether p equals dir or sits below it on a segment boundary.
func underDir(p, dir string) bool {
	if dir == "" || dir == "/" {
		return false
	}
	return p == dir || strings.HasPrefix(p, dir+"/")
}

// Dir returns the endpoint's directory without a trailing slash.
func Dir(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		base := endpoint
		if i := strings.IndexAny(base, "?#"); i >= 0 {
			base = base[:i]
		}
		if i := strings.LastIndex(base, "/"); i >= 0 {
			base = base[:i]
		}
		return strings.TrimRight(base, "/")
	}

	p := u.EscapedPath()
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[:i]
	} else {
		p = ""
	}
	return strings.TrimRight(u.Scheme+"://"+u.Host+p, "/")
}
