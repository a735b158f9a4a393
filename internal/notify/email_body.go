package notify

import (
	"fmt"
	"path/filepath"
	"strings"
)

// emailSectionOrder fixes the vertical layout of the email body. Sections
// whose screenshot is missing are dropped, never reordered.
var emailSectionOrder = []string{
	"header",
	"summary",
	"story_charts",
	"defect_charts",
	"stories_table",
	"defects_table",
}

// BuildEmailHTML assembles the inline-image email body. Each captured
// section becomes one full-width row referencing its image by Content-ID,
// so the body works in mail clients that strip external resources.
func BuildEmailHTML(msg Message) string {
	byName := make(map[string]string, len(msg.Images))
	for _, img := range msg.Images {
		byName[img.Section] = filepath.Base(img.Path)
	}

	var b strings.Builder
	b.WriteString(`<html><body style="margin:0;padding:0;background:#f4f5f7;">`)
	b.WriteString(`<table role="presentation" width="100%" cellpadding="0" cellspacing="0">`)

	for _, section := range emailSectionOrder {
		cid, ok := byName[section]
		if !ok {
			continue
		}
		fmt.Fprintf(&b,
			`<tr><td align="center" style="padding:8px 0;"><img src="cid:%s" alt="%s" style="max-width:100%%;display:block;"></td></tr>`,
			cid, section)
	}

	if msg.ReportURL != "" {
		fmt.Fprintf(&b,
			`<tr><td align="center" style="padding:16px 0;font-family:Arial,sans-serif;font-size:13px;"><a href="%s">View the full interactive report</a></td></tr>`,
			msg.ReportURL)
	}

	b.WriteString(`</table></body></html>`)
	return b.String()
}
