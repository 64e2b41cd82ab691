package formatters

import (
	"fmt"
	"html"
	"strings"

	"scrivo/internal/transcript"
)

// speakerPalette colors distinct speakers in rotation.
var speakerPalette = []string{
	"#1f6feb", "#d29922", "#2ea043", "#db61a2", "#f85149", "#8957e5",
}

// HTMLFormatter renders a transcript as a standalone HTML document.
type HTMLFormatter struct {
	// Title is the document and heading title.
	Title string
	// CSSPrefix prefixes every generated CSS class.
	CSSPrefix string
	// SpeakerColors assigns a palette color per distinct speaker.
	SpeakerColors bool
	// IncludeTimestamps emits the utterance start time on each line.
	IncludeTimestamps bool
}

// NewHTMLFormatter returns an html formatter with speaker colors and
// timestamps on.
func NewHTMLFormatter() *HTMLFormatter {
	return &HTMLFormatter{
		Title:             "Transcription",
		CSSPrefix:         "transcript",
		SpeakerColors:     true,
		IncludeTimestamps: true,
	}
}

// Extension returns "html".
func (f *HTMLFormatter) Extension() string { return "html" }

// Format renders the result as a complete HTML page. All transcript content
// is escaped.
func (f *HTMLFormatter) Format(result *transcript.Result) (string, error) {
	if result == nil {
		return "", fmt.Errorf("result is nil")
	}

	title := f.Title
	if title == "" {
		title = "Transcription"
	}
	prefix := f.CSSPrefix
	if prefix == "" {
		prefix = "transcript"
	}

	speakerClass := f.assignSpeakerClasses(result.Utterances)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	f.writeStyles(&b, prefix, speakerClass)
	b.WriteString("</head>\n<body>\n")
	fmt.Fprintf(&b, "<div class=%q>\n", prefix)
	fmt.Fprintf(&b, "<h1 class=%q>%s</h1>\n", prefix+"-title", html.EscapeString(title))

	if len(result.Utterances) == 0 {
		fmt.Fprintf(&b, "<p class=%q>%s</p>\n", prefix+"-text", html.EscapeString(result.PlainText()))
	}
	for _, u := range result.Utterances {
		fmt.Fprintf(&b, "<div class=%q>\n", prefix+"-utterance")
		if f.IncludeTimestamps {
			fmt.Fprintf(&b, "<span class=%q>%s</span>\n", prefix+"-time", Timestamp(u.Start))
		}
		if u.Speaker != "" {
			class := prefix + "-speaker"
			if f.SpeakerColors {
				class += " " + prefix + "-" + speakerClass[u.Speaker]
			}
			fmt.Fprintf(&b, "<span class=%q>%s</span>\n", class, html.EscapeString(u.Speaker))
		}
		fmt.Fprintf(&b, "<span class=%q>%s</span>\n", prefix+"-text", html.EscapeString(u.Text))
		b.WriteString("</div>\n")
	}

	b.WriteString("</div>\n</body>\n</html>\n")
	return b.String(), nil
}

func (f *HTMLFormatter) assignSpeakerClasses(utterances []transcript.Utterance) map[string]string {
	classes := make(map[string]string)
	if !f.SpeakerColors {
		return classes
	}
	next := 0
	for _, u := range utterances {
		if u.Speaker == "" {
			continue
		}
		if _, ok := classes[u.Speaker]; ok {
			continue
		}
		classes[u.Speaker] = fmt.Sprintf("speaker-%d", next)
		next++
	}
	return classes
}

func (f *HTMLFormatter) writeStyles(b *strings.Builder, prefix string, speakerClass map[string]string) {
	b.WriteString("<style>\n")
	fmt.Fprintf(b, "body { font-family: sans-serif; margin: 2rem; }\n")
	fmt.Fprintf(b, ".%s-utterance { margin-bottom: 0.75rem; }\n", prefix)
	fmt.Fprintf(b, ".%s-speaker { font-weight: bold; margin-right: 0.5rem; }\n", prefix)
	fmt.Fprintf(b, ".%s-time { color: #6e7781; margin-right: 0.5rem; font-size: 0.85em; }\n", prefix)

	// Emit one color rule per distinct speaker, cycling the palette.
	seen := make(map[string]bool)
	for _, class := range speakerClass {
		if seen[class] {
			continue
		}
		seen[class] = true
		var index int
		fmt.Sscanf(class, "speaker-%d", &index)
		color := speakerPalette[index%len(speakerPalette)]
		fmt.Fprintf(b, ".%s-%s { color: %s; }\n", prefix, class, color)
	}
	b.WriteString("</style>\n")
}
