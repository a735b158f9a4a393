package upload

import "testing"

func TestSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Sprint 42", "sprint-42"},
		{"  Q3 / Week 5  ", "q3-week-5"},
		{"ALL CAPS", "all-caps"},
		{"already-slugged", "already-slugged"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := slug(tc.in); got != tc.want {
			t.Errorf("slug(%q): got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestConfigEnabled(t *testing.T) {
	if (Config{}).Enabled() {
		t.Error("empty config should be disabled")
	}
	if !(Config{Bucket: "sprint-reports"}).Enabled() {
		t.Error("config with bucket should be enabled")
	}
}

func TestContentTypeFor(t *testing.T) {
	cases := map[string]string{
		"report.html":        "text/html; charset=utf-8",
		"sprint_stories.csv": "text/csv",
		"header.PNG":         "image/png",
		"sprint_report.xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"draft.eml":          "message/rfc822",
		"mystery.bin":        "application/octet-stream",
	}
	for in, want := range cases {
		if got := contentTypeFor(in); got != want {
			t.Errorf("contentTypeFor(%q): got %q, want %q", in, got, want)
		}
	}
}
