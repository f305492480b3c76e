// Package markdown renders reply templates, which are authored in markdown,
// into the HTML subset the Telegram Bot API accepts.
package markdown

import (
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

var (
	paragraphRe = regexp.MustCompile(`(?s)<p>(.*?)</p>`)
	codeBlockRe = regexp.MustCompile(`(?s)<pre><code[^>]*>(.*?)</code></pre>`)
	tagRe       = regexp.MustCompile(`</?([a-zA-Z]+)(?:\s[^>]*)?/?>`)
)

// telegramTags are the only tags Telegram renders; everything else is dropped.
var telegramTags = map[string]bool{
	"b": true, "i": true, "u": true, "s": true,
	"code": true, "pre": true, "a": true,
}

var tagReplacer = strings.NewReplacer(
	"<strong>", "<b>", "</strong>", "</b>",
	"<em>", "<i>", "</em>", "</i>",
	"<del>", "<s>", "</del>", "</s>",
	"<ul>", "", "</ul>", "",
	"<ol>", "", "</ol>", "",
	"<li>", "• ", "</li>", "\n",
)

// ToTelegramHTML converts a markdown string to Telegram-compatible HTML.
func ToTelegramHTML(src string) string {
	if src == "" {
		return ""
	}

	html := string(blackfriday.Run([]byte(src), blackfriday.WithExtensions(blackfriday.CommonExtensions)))

	html = paragraphRe.ReplaceAllString(html, "$1\n")
	html = codeBlockRe.ReplaceAllString(html, "<pre>$1</pre>")
	html = tagReplacer.Replace(html)

	// Strip whatever tags remain outside Telegram's whitelist.
	html = tagRe.ReplaceAllStringFunc(html, func(tag string) string {
		name := strings.ToLower(tagRe.FindStringSubmatch(tag)[1])
		if name == "br" {
			return "\n"
		}
		if telegramTags[name] {
			return tag
		}
		return ""
	})

	return strings.TrimSpace(html)
}
