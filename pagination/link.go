package pagination

import (
	"slices"
	"strings"
)

// Link is one link-value of a Link header.
type Link struct {
	URL string
	// Rel holds the relation types, lowercased.
	Rel []string
	// Params holds the remaining target attributes (title, type, ...),
	// keyed by lowercased name.
	Params map[string]string
}

// Links is a parsed Link header.
type Links []Link

// Get returns the URL of the first link with relation rel, or "".
// Relation types compare case-insensitively.
func (l Links) Get(rel string) string {
	rel = strings.ToLower(rel)
	for _, link := range l {
		if slices.Contains(link.Rel, rel) {
			return link.URL
		}
	}
	return ""
}

// Next returns the rel="next" URL, or "".
func (l Links) Next() string { return l.Get("next") }

// Prev returns the rel="prev" (or "previous") URL, or "".
func (l Links) Prev() string {
	if u := l.Get("prev"); u != "" {
		return u
	}
	return l.Get("previous")
}

// First returns the rel="first" URL, or "".
func (l Links) First() string { return l.Get("first") }

// Last returns the rel="last" URL, or "".
func (l Links) Last() string { return l.Get("last") }

// ParseLinkHeader parses one or more Link header values. Each value may
// hold several comma-separated link-values; rel may list several
// space-separated relation types; parameter values may be quoted. Link
// values that cannot be parsed are skipped.
func ParseLinkHeader(values ...string) Links {
	var links Links
	for _, v := range values {
		p := linkParser{s: v}
		for !p.eof() {
			if link, ok := p.linkValue(); ok {
				links = append(links, link)
			}
		}
	}
	return links
}

type linkParser struct {
	s   string
	pos int
}

func (p *linkParser) eof() bool { return p.pos >= len(p.s) }

func (p *linkParser) peek() byte { return p.s[p.pos] }

func (p *linkParser) skipSpace() {
	for !p.eof() && (p.peek() == ' ' || p.peek() == '\t') {
		p.pos++
	}
}

// skipToNext moves past the next comma that is not inside a quoted string
// or angle brackets.
func (p *linkParser) skipToNext() {
	inQuote, inURL := false, false
	for !p.eof() {
		c := p.peek()
		p.pos++
		switch {
		case inQuote && c == '\\':
			p.pos++
		case c == '"' && !inURL:
			inQuote = !inQuote
		case c == '<' && !inQuote:
			inURL = true
		case c == '>' && !inQuote:
			inURL = false
		case c == ',' && !inQuote && !inURL:
			return
		}
	}
}

func (p *linkParser) linkValue() (Link, bool) {
	p.skipSpace()
	if p.eof() {
		return Link{}, false
	}
	if p.peek() == ',' {
		p.pos++
		return Link{}, false
	}
	if p.peek() != '<' {
		p.skipToNext()
		return Link{}, false
	}
	end := strings.IndexByte(p.s[p.pos:], '>')
	if end < 0 {
		p.pos = len(p.s)
		return Link{}, false
	}
	link := Link{URL: strings.TrimSpace(p.s[p.pos+1 : p.pos+end])}
	p.pos += end + 1

	for {
		p.skipSpace()
		if p.eof() {
			break
		}
		if p.peek() == ',' {
			p.pos++
			break
		}
		if p.peek() != ';' {
			p.skipToNext()
			return Link{}, false
		}
		p.pos++
		name, value, ok := p.param()
		if !ok {
			p.skipToNext()
			return Link{}, false
		}
		if name == "rel" {
			if link.Rel == nil {
				link.Rel = strings.Fields(strings.ToLower(value))
			}
			continue
		}
		if link.Params == nil {
			link.Params = make(map[string]string)
		}
		if _, dup := link.Params[name]; !dup {
			link.Params[name] = value
		}
	}
	if link.URL == "" {
		return Link{}, false
	}
	return link, true
}

func (p *linkParser) param() (name, value string, ok bool) {
	p.skipSpace()
	start := p.pos
	for !p.eof() && !strings.ContainsRune("=;, \t", rune(p.peek())) {
		p.pos++
	}
	name = strings.ToLower(p.s[start:p.pos])
	if name == "" {
		return "", "", false
	}
	p.skipSpace()
	if p.eof() || p.peek() != '=' {
		return name, "", true
	}
	p.pos++
	p.skipSpace()
	if p.eof() {
		return name, "", true
	}
	if p.peek() == '"' {
		return p.quoted(name)
	}
	start = p.pos
	for !p.eof() && p.peek() != ';' && p.peek() != ',' {
		p.pos++
	}
	return name, strings.TrimSpace(p.s[start:p.pos]), true
}

func (p *linkParser) quoted(name string) (string, string, bool) {
	p.pos++
	var b strings.Builder
	for !p.eof() {
		c := p.peek()
		p.pos++
		switch c {
		case '\\':
			if p.eof() {
				return "", "", false
			}
			b.WriteByte(p.peek())
			p.pos++
		case '"':
			return name, b.String(), true
		default:
			b.WriteByte(c)
		}
	}
	return "", "", false
}
