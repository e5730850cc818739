package storage

import "testing"

func TestNewWithoutCredentials(t *testing.T) {
	c, err := New("", "us-east-1", "", "", "bucket", "")
	if c != nil || err != nil {
		t.Errorf("New() = %v, %v; want nil, nil", c, err)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New("http://minio:9000", "us-east-1", "key", "secret", "", ""); err == nil {
		t.Error("expected error without bucket")
	}
}

func TestFileURLAndKeyFromURL(t *testing.T) {
	tests := []struct {
		name      string
		publicURL string
		wantURL   string
	}{
		{"path style", "", "http://minio:9000/photos/collections/a/b.jpg"},
		{"cdn", "https://cdn.school.example/", "https://cdn.school.example/collections/a/b.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New("http://minio:9000/", "us-east-1", "key", "secret", "photos", tt.publicURL)
			if err != nil {
				t.Fatal(err)
			}
			url := c.FileURL("collections/a/b.jpg")
			if url != tt.wantURL {
				t.Errorf("FileURL = %q, want %q", url, tt.wantURL)
			}
			key, ok := c.KeyFromURL(url)
			if !ok || key != "collections/a/b.jpg" {
				t.Errorf("KeyFromURL = %q, %v", key, ok)
			}
		})
	}
}

func TestKeyFromForeignURL(t *testing.T) {
	c, _ := New("http://minio:9000", "us-east-1", "key", "secret", "photos", "")
	for _, u := range []string{"https://elsewhere.example/x.jpg", "http://minio:9000/photos/", "http://minio:9000/other/x.jpg"} {
		if _, ok := c.KeyFromURL(u); ok {
			t.Errorf("KeyFromURL(%q) should be false", u)
		}
	}
}
