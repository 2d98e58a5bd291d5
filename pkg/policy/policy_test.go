package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{
			name: "strips fragment",
			in:   "https://example.com/docs#section-2",
			want: "https://example.com/docs",
		},
		{
			name: "sorts query parameters",
			in:   "https://example.com/search?z=1&a=2",
			want: "https://example.com/search?a=2&z=1",
		},
		{
			name: "lowercases scheme and host",
			in:   "HTTPS://Example.COM/About",
			want: "https://example.com/About",
		},
		{
			name: "empty path becomes root",
			in:   "https://example.com",
			want: "https://example.com/",
		},
		{
			name:    "missing host",
			in:      "not-a-url",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	once, err := Normalize("https://Example.com/a?b=2&a=1#x")
	require.NoError(t, err)
	twice, err := Normalize(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestEligibleSchemeAndAssets(t *testing.T) {
	p, err := New("https://example.com", false, false)
	require.NoError(t, err)

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"http ok", "http://example.com/page", true},
		{"https ok", "https://example.com/page", true},
		{"ftp rejected", "ftp://example.com/file", false},
		{"mailto rejected", "mailto:someone@example.com", false},
		{"javascript rejected", "javascript:void(0)", false},
		{"image rejected", "https://example.com/logo.png", false},
		{"stylesheet rejected", "https://example.com/site.css", false},
		{"script rejected", "https://example.com/app.js", false},
		{"archive rejected", "https://example.com/dump.tar.gz", false},
		{"pdf rejected without pdf support", "https://example.com/manual.pdf", false},
		{"social host rejected", "https://twitter.com/someuser", false},
		{"social www host rejected", "https://www.facebook.com/somepage", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := p.Eligible(tt.url)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEligiblePDFWhenEnabled(t *testing.T) {
	p, err := New("https://example.com", false, true)
	require.NoError(t, err)

	ok, _ := p.Eligible("https://example.com/manual.pdf")
	assert.True(t, ok)
}

func TestEligibleStrictDomain(t *testing.T) {
	p, err := New("https://docs.example.com", true, false)
	require.NoError(t, err)

	ok, _ := p.Eligible("https://docs.example.com/guide")
	assert.True(t, ok)

	ok, _ = p.Eligible("https://blog.example.com/post")
	assert.False(t, ok, "strict mode requires exact host match")

	ok, _ = p.Eligible("https://other.org/page")
	assert.False(t, ok)
}

func TestEligibleStrictDifferentPort(t *testing.T) {
	p, err := New("http://127.0.0.1:1111/", true, false)
	require.NoError(t, err)

	ok, _ := p.Eligible("http://127.0.0.1:2222/page")
	assert.False(t, ok, "a different port is a different host in strict mode")

	ok, _ = p.Eligible("http://127.0.0.1:1111/page")
	assert.True(t, ok)
}

func TestEligibleRelaxedDomainMarksExternal(t *testing.T) {
	p, err := New("https://docs.example.com", false, false)
	require.NoError(t, err)

	ok, external := p.Eligible("https://blog.example.com/post")
	assert.True(t, ok)
	assert.False(t, external, "same eTLD+1 is internal")

	ok, external = p.Eligible("https://other.org/page")
	assert.True(t, ok)
	assert.True(t, external)
}

func TestNewRejectsBadSeed(t *testing.T) {
	_, err := New("not a url at all", false, false)
	assert.Error(t, err)
}
