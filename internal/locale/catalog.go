// Package locale holds the user-facing texts of the bot.
//
// A Catalog is loaded once at startup and passed explicitly to the
// components that talk to users. It is read-only after Load.
package locale

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

//go:embed locales/*.json
var files embed.FS

const DefaultLang = "en"

type catalogFile struct {
	Messages     map[string]string `json:"messages"`
	QuickReplies map[string]string `json:"quick_replies"`
	Tips         []string          `json:"tips"`
}

// Catalog is an immutable set of messages for one language.
type Catalog struct {
	lang  string
	tmpl  *template.Template
	keys  map[string]struct{}
	quick map[string]string
	tips  []string
}

// Load parses the embedded catalog for lang.
func Load(lang string) (*Catalog, error) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = DefaultLang
	}
	raw, err := files.ReadFile("locales/" + lang + ".json")
	if err != nil {
		return nil, fmt.Errorf("unknown locale %q: %w", lang, err)
	}
	return parse(lang, raw)
}

func parse(lang string, raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode locale %s: %w", lang, err)
	}
	if len(f.Tips) == 0 {
		return nil, fmt.Errorf("locale %s: no tips", lang)
	}

	c := &Catalog{
		lang:  lang,
		tmpl:  template.New(lang).Option("missingkey=error"),
		keys:  make(map[string]struct{}, len(f.Messages)),
		quick: make(map[string]string, len(f.QuickReplies)),
		tips:  append([]string(nil), f.Tips...),
	}
	for key, text := range f.Messages {
		if _, err := c.tmpl.New(key).Parse(text); err != nil {
			return nil, fmt.Errorf("locale %s: message %s: %w", lang, key, err)
		}
		c.keys[key] = struct{}{}
	}
	for k, v := range f.QuickReplies {
		c.quick[normalize(k)] = v
	}
	return c, nil
}

// Lang returns the catalog language.
func (c *Catalog) Lang() string { return c.lang }

// Has reports whether key is defined.
func (c *Catalog) Has(key string) bool {
	_, ok := c.keys[key]
	return ok
}

// Render executes the message template key with data.
func (c *Catalog) Render(key string, data any) (string, error) {
	if !c.Has(key) {
		return "", fmt.Errorf("locale %s: missing message %s", c.lang, key)
	}
	var buf bytes.Buffer
	if err := c.tmpl.ExecuteTemplate(&buf, key, data); err != nil {
		return "", fmt.Errorf("render %s: %w", key, err)
	}
	return buf.String(), nil
}

// Text renders a message that takes no data. Missing keys come back as the
// key itself so a typo never produces an empty reply.
func (c *Catalog) Text(key string) string {
	s, err := c.Render(key, nil)
	if err != nil {
		return key
	}
	return s
}

// QuickReply looks up a canned answer for an exact (case-insensitive,
// trimmed) phrase.
func (c *Catalog) QuickReply(input string) (string, bool) {
	s, ok := c.quick[normalize(input)]
	return s, ok
}

// Tips returns a copy of the tip list.
func (c *Catalog) Tips() []string {
	return append([]string(nil), c.tips...)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
