package census

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Links are the download candidates found on the index page.
type Links struct {
	Data    []string // monthly data archives
	Layouts []string // record layout documents
}

// ExtractLinks resolves every anchor href on page against base and sorts
// the absolute URLs into data and layout links. Order follows the page;
// repeated links are reported once.
func ExtractLinks(page []byte, base string, data, layout *regexp.Regexp) (Links, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return Links{}, fmt.Errorf("parse index url %q: %w", base, err)
	}

	var links Links
	seen := make(map[string]bool)
	z := html.NewTokenizer(bytes.NewReader(page))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF at the end of the page; the tokenizer is lenient otherwise.
			return links, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			href := hrefOf(z)
			if href == "" {
				continue
			}
			ref, err := url.Parse(href)
			if err != nil {
				continue
			}
			abs := baseURL.ResolveReference(ref).String()
			if seen[abs] {
				continue
			}
			switch {
			case data.MatchString(abs):
				links.Data = append(links.Data, abs)
			case layout.MatchString(abs):
				links.Layouts = append(links.Layouts, abs)
			default:
				continue
			}
			seen[abs] = true
		}
	}
}

func hrefOf(z *html.Tokenizer) string {
	for {
		key, val, more := z.TagAttr()
		if strings.EqualFold(string(key), "href") {
			return strings.TrimSpace(string(val))
		}
		if !more {
			return ""
		}
	}
}
