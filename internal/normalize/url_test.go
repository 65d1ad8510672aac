package normalize

import "testing"

func TestURL_TrackingStripAndTrailingSlash(t *testing.T) {
	got, err := URL("https://a.example.com:443/x/?utm_source=x&b=2&a=1#frag")
	if err != nil {
		t.Fatalf("URL() error = %v", err)
	}
	want := "https://a.example.com/x?a=1&b=2"
	if got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}

func TestURL_DefaultPortRemoved(t *testing.T) {
	got, err := URL("http://example.com:80/path")
	if err != nil {
		t.Fatalf("URL() error = %v", err)
	}
	if got != "http://example.com/path" {
		t.Errorf("URL() = %q", got)
	}
}

func TestURL_NonDefaultPortKept(t *testing.T) {
	got, err := URL("http://example.com:8080/path")
	if err != nil {
		t.Fatalf("URL() error = %v", err)
	}
	if got != "http://example.com:8080/path" {
		t.Errorf("URL() = %q", got)
	}
}

func TestURL_RootPathUnchanged(t *testing.T) {
	got, err := URL("https://example.com/")
	if err != nil {
		t.Fatalf("URL() error = %v", err)
	}
	if got != "https://example.com/" {
		t.Errorf("URL() = %q", got)
	}
}

func TestURL_PrefixTrackingParamsStripped(t *testing.T) {
	got, err := URL("https://example.com/a?utm_campaign=x&spmid=1&keep=2")
	if err != nil {
		t.Fatalf("URL() error = %v", err)
	}
	if got != "https://example.com/a?keep=2" {
		t.Errorf("URL() = %q", got)
	}
}

func TestURL_InvalidURL(t *testing.T) {
	if _, err := URL("not a url"); err == nil {
		t.Error("expected error for invalid url")
	}
}

func TestURL_RelativeURLRejected(t *testing.T) {
	if _, err := URL("/relative/path"); err == nil {
		t.Error("expected error for relative url")
	}
}
