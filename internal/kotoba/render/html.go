package render

import "strings"

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// HTML converts the Markdown subset used in replies to Matrix HTML: fenced
// code blocks, inline code, bold and line breaks. Everything else is escaped
// text.
func HTML(md string) string {
	var out []string
	var code strings.Builder
	inCode := false
	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(line, "```") {
			if inCode {
				out = append(out, "<pre><code>"+code.String()+"</code></pre>")
				code.Reset()
			}
			inCode = !inCode
			continue
		}
		if inCode {
			code.WriteString(htmlEscaper.Replace(line))
			code.WriteString("\n")
			continue
		}
		out = append(out, inline(htmlEscaper.Replace(line)))
	}
	if inCode {
		out = append(out, "<pre><code>"+code.String()+"</code></pre>")
	}
	return strings.Join(out, "<br/>")
}

// inline converts `code` spans and **bold** in one escaped line. Bold
// markers inside code are kept literally; an unpaired marker stays as text.
func inline(line string) string {
	var b strings.Builder
	rest := line
	for {
		before, after, found := strings.Cut(rest, "`")
		if !found {
			b.WriteString(pair(before, "**", "<strong>", "</strong>"))
			return b.String()
		}
		code, tail, closed := strings.Cut(after, "`")
		if !closed {
			b.WriteString(pair(before, "**", "<strong>", "</strong>"))
			b.WriteString("`" + after)
			return b.String()
		}
		b.WriteString(pair(before, "**", "<strong>", "</strong>"))
		b.WriteString("<code>" + code + "</code>")
		rest = tail
	}
}

// pair wraps each complete delim...delim run of s in open and close.
func pair(s, delim, open, close string) string {
	var b strings.Builder
	for {
		before, after, found := strings.Cut(s, delim)
		if !found {
			b.WriteString(s)
			return b.String()
		}
		inner, tail, closed := strings.Cut(after, delim)
		if !closed {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(before + open + inner + close)
		s = tail
	}
}
