package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

//go:embed *.json
var embedded embed.FS

// DefaultLanguage backs every missing translation
const DefaultLanguage = "en"

// Args fills {name} placeholders in a label
type Args map[string]any

// Catalog maps language codes to flattened label keys,
// e.g. "es" -> "document.total" -> "Total".
type Catalog struct {
	mu     sync.RWMutex
	labels map[string]map[string]string
}

// NewCatalog loads every .json file at the root of fsys. Each file is one
// language named by its base name.
func NewCatalog(fsys fs.FS) (*Catalog, error) {
	names, err := fs.Glob(fsys, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list locales: %w", err)
	}

	labels := make(map[string]map[string]string, len(names))
	for _, name := range names {
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read locale %s: %w", name, err)
		}
		var tree map[string]any
		if err := json.Unmarshal(content, &tree); err != nil {
			return nil, fmt.Errorf("failed to parse locale %s: %w", name, err)
		}
		flat := make(map[string]string)
		flatten("", tree, flat)
		labels[strings.TrimSuffix(path.Base(name), ".json")] = flat
	}
	return &Catalog{labels: labels}, nil
}

// flatten turns nested objects into dot-separated keys
func flatten(prefix string, tree map[string]any, out map[string]string) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch child := v.(type) {
		case map[string]any:
			flatten(key, child, out)
		case string:
			out[key] = child
		default:
			out[key] = fmt.Sprint(child)
		}
	}
}

// Languages lists the loaded language codes in order
func (c *Catalog) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	langs := make([]string, 0, len(c.labels))
	for lang := range c.labels {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Keys lists the label keys of lang
func (c *Catalog) Keys(lang string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.labels[lang]))
	for k := range c.labels[lang] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Translate looks key up in lang, then in its base language ("es-MX" uses
// "es"), then in English. A key missing everywhere is returned as is.
func (c *Catalog) Translate(lang, key string, args ...Args) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, candidate := range fallbackChain(lang) {
		if text, ok := c.labels[candidate][key]; ok {
			return format(text, args...)
		}
	}
	return key
}

func fallbackChain(lang string) []string {
	lang = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(lang), "_", "-"))
	chain := make([]string, 0, 3)
	if lang != "" {
		chain = append(chain, lang)
		if base, _, found := strings.Cut(lang, "-"); found {
			chain = append(chain, base)
		}
	}
	if lang != DefaultLanguage {
		chain = append(chain, DefaultLanguage)
	}
	return chain
}

func format(text string, args ...Args) string {
	if len(args) == 0 {
		return text
	}
	for k, v := range args[0] {
		text = strings.ReplaceAll(text, "{"+k+"}", fmt.Sprint(v))
	}
	return text
}

var (
	defaultCatalog *Catalog
	loadOnce       sync.Once
)

// Default returns the catalog of the embedded locales, loading it on first use
func Default() *Catalog {
	loadOnce.Do(func() {
		c, err := NewCatalog(embedded)
		if err != nil {
			zap.L().Error("failed to load embedded locales", zap.Error(err))
			c = &Catalog{labels: map[string]map[string]string{}}
		}
		zap.L().Debug("locales loaded", zap.Strings("languages", c.Languages()))
		defaultCatalog = c
	})
	return defaultCatalog
}

// Translate uses the default catalog
func Translate(lang, key string, args ...Args) string {
	return Default().Translate(lang, key, args...)
}

// T translates key in the language carried by ctx
func T(ctx context.Context, key string, args ...Args) string {
	return Translate(GetLocale(ctx), key, args...)
}

type contextKey string

const LocaleContextKey contextKey = "locale"

// WithLocale returns a copy of ctx carrying lang
func WithLocale(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, LocaleContextKey, lang)
}

// GetLocale returns the language carried by ctx, or DefaultLanguage
func GetLocale(ctx context.Context) string {
	if lang, ok := ctx.Value(LocaleContextKey).(string); ok && lang != "" {
		return lang
	}
	return DefaultLanguage
}
