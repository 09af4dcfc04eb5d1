package extract

import (
	"reflect"
	"testing"
)

func TestLinks_SameDomainOnly(t *testing.T) {
	html := `<html><body>
		<a href="https://other.example/x">External</a>
		<a href="/local">Local</a>
	</body></html>`

	got := Links(html, "https://site.example/p", "site.example")
	want := []string{"https://site.example/local"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Links() = %v, want %v", got, want)
	}
}

func TestLinks_Filtering(t *testing.T) {
	html := `<html><body>
		<a href="javascript:void(0)">js</a>
		<a href="  JavaScript:alert(1)">js upper</a>
		<a href="mailto:me@site.example">mail</a>
		<a href="tel:+100">phone</a>
		<a href="#top">fragment only</a>
		<a href="?page=2">query only</a>
		<a href="/">root</a>
		<a href=".">self</a>
		<a href="">empty</a>
		<a href="http://[broken">malformed</a>
		<a href="https://sub.site.example/blog">subdomain</a>
		<a href="ftp://site.example/file">ftp</a>
		<a href="/files/report.pdf">pdf</a>
		<a href="/img/logo.PNG">png</a>
		<a href="/admin/users">admin</a>
		<a href="/login">login</a>
		<a href="/api/v1/items">api</a>
		<a href="/about/">about</a>
		<a href="  contact?ref=nav#form  ">contact</a>
	</body></html>`

	got := Links(html, "https://site.example/p", "site.example")
	want := []string{
		"https://site.example/about",
		"https://site.example/contact",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Links() = %v, want %v", got, want)
	}
}

func TestLinks_DedupFirstSeenOrder(t *testing.T) {
	html := `<html><body>
		<a href="/c">c</a>
		<a href="/a">a</a>
		<a href="/c/">c again</a>
		<a href="https://site.example/a#x">a again</a>
		<a href="/b?utm=1">b</a>
	</body></html>`

	got := Links(html, "https://site.example/", "site.example")
	want := []string{
		"https://site.example/c",
		"https://site.example/a",
		"https://site.example/b",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Links() = %v, want %v", got, want)
	}
}

func TestLinks_RelativeResolution(t *testing.T) {
	html := `<a href="sibling">s</a><a href="../up">u</a><a href="//site.example/proto">p</a>`

	got := Links(html, "https://site.example/docs/guide/intro", "site.example")
	want := []string{
		"https://site.example/docs/guide/sibling",
		"https://site.example/docs/up",
		"https://site.example/proto",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Links() = %v, want %v", got, want)
	}
}

func TestLinks_NoAnchors(t *testing.T) {
	got := Links("<p>nothing here</p>", "https://site.example/", "site.example")
	if got == nil || len(got) != 0 {
		t.Errorf("Links() = %#v, want empty non-nil slice", got)
	}
}

func TestMetadata(t *testing.T) {
	tests := []struct {
		name string
		html string
		want Metadata
	}{
		{
			name: "title tag",
			html: `<html><head><title>  Home Page </title></head><body><h1>Heading</h1></body></html>`,
			want: Metadata{Title: "Home Page"},
		},
		{
			name: "falls back to first h1",
			html: `<html><head><title>   </title></head><body><h1> First </h1><h1>Second</h1></body></html>`,
			want: Metadata{Title: "First"},
		},
		{
			name: "no title at all",
			html: `<html><body><p>text</p></body></html>`,
			want: Metadata{},
		},
		{
			name: "last-modified meta",
			html: `<html><head><title>T</title>
				<meta name="last-modified" content="2024-03-01">
				<meta property="article:modified_time" content="2023-01-01T00:00:00Z">
				</head></html>`,
			want: Metadata{Title: "T", LastModified: "2024-03-01"},
		},
		{
			name: "article modified time fallback",
			html: `<html><head><meta property="article:modified_time" content="2023-05-06T07:08:09Z"></head></html>`,
			want: Metadata{LastModified: "2023-05-06T07:08:09Z"},
		},
		{
			name: "empty meta content ignored",
			html: `<html><head><meta name="last-modified" content=""><meta property="article:modified_time" content="2022-02-02"></head></html>`,
			want: Metadata{LastModified: "2022-02-02"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractMetadata(tt.html)
			if got != tt.want {
				t.Errorf("ExtractMetadata() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestIsExcluded(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/", false},
		{"/about", false},
		{"/blog/post-1", false},
		{"/administrator", false},
		{"/apiary", false},
		{"/docs/manual.pdf", true},
		{"/assets/app.js", true},
		{"/feed.xml", true},
		{"/photos/cat.JPEG", true},
		{"/admin", true},
		{"/admin/settings", true},
		{"/en/login", true},
		{"/api/users", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsExcluded(tt.path); got != tt.want {
				t.Errorf("IsExcluded(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
