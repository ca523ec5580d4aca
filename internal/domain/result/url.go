package result

import (
	"net/url"
	"strings"
)

// Equivalent reports whether two URLs denote the same page.
//
// A leading "www." host label and a trailing "/" on the path are ignored,
// the scheme is not compared, paths are compared percent-decoded, and the
// query and fragment must match exactly.
func Equivalent(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	if stripWWW(netloc(a)) != stripWWW(netloc(b)) ||
		a.RawQuery != b.RawQuery ||
		a.EscapedFragment() != b.EscapedFragment() {
		return false
	}
	return decodedPath(a) == decodedPath(b)
}

func netloc(u *url.URL) string {
	if u.User != nil {
		return u.User.String() + "@" + u.Host
	}
	return u.Host
}

func stripWWW(host string) string {
	return strings.TrimPrefix(host, "www.")
}

func decodedPath(u *url.URL) string {
	p := strings.TrimSuffix(u.EscapedPath(), "/")
	if dec, err := url.PathUnescape(p); err == nil {
		return dec
	}
	return p
}
