package uri

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		endpoint  string
		want      string
	}{
		{"absolute https passthrough", "https://x/y", "https://host/base/endpoint", "https://x/y"},
		{"absolute http passthrough", "http://other/p?q=1", "https://host/a.php", "http://other/p?q=1"},
		{"scheme is case-insensitive", "HTTPS://X/y", "https://host/a.php", "HTTPS://X/y"},
		{"leading slash", "/private/part2", "https://host/private/interview.php", "https://host/private/part2"},
		{"bare path", "part2", "https://host/private/interview.php", "https://host/private/part2"},
		{"many leading slashes", "///p", "https://host/dir/e", "https://host/dir/p"},
		{"endpoint query ignored", "p", "https://host/dir/e.php?x=1#frag", "https://host/dir/p"},
		{"endpoint at root", "/next", "https://host/interview.php", "https://host/next"},
		{"endpoint without path", "next", "https://host", "https://host/next"},
		{"endpoint with trailing slash", "next", "https://host/dir/", "https://host/dir/next"},
		{"endpoint with port", "n", "http://127.0.0.1:8080/a/b", "http://127.0.0.1:8080/a/n"},
		{"leading slash deeper under directory", "/private/a/b", "https://host/private/interview.php", "https://host/private/a/b"},
		{"leading slash equal to directory", "/private", "https://host/private/interview.php", "https://host/private"},
		{"leading slash sharing only a prefix", "/privateer/x", "https://host/private/interview.php", "https://host/private/privateer/x"},
		{"leading slash outside directory", "/next", "https://host/api/start", "https://host/api/next"},
		{"nested directory", "/a/b/c", "https://host/a/b/e.php", "https://host/a/b/c"},
		{"bare path repeating directory", "private/next", "https://host/private/interview.php", "https://host/private/private/next"},
		{"empty candidate", "", "https://host/dir/e", "https://host/dir/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.candidate, tt.endpoint))
		})
	}
}

func TestIsAbsolute(t *testing.T) {
	assert.True(t, IsAbsolute("http://a"))
	assert.True(t, IsAbsolute("https://a"))
	assert.False(t, IsAbsolute("ftp://a"))
	assert.False(t, IsAbsolute("/http://a"))
}
