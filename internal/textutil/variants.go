package textutil

import "strings"

// titleDelimiters mark where a title's subtitle or edition suffix begins.
var titleDelimiters = []string{":", " - ", "(", "["}

// TitleVariants generates search variants for fuzzy lookup, ordered from most
// to least specific: the full title, the portion before the first delimiter,
// and the first maxWords words. Duplicates and empty variants are dropped.
func TitleVariants(title string, maxWords int) []string {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}

	var variants []string
	seen := make(map[string]struct{})
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		key := Normalize(v)
		if key == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		variants = append(variants, v)
	}

	add(title)

	cut := len(title)
	for _, delim := range titleDelimiters {
		if idx := strings.Index(title, delim); idx > 0 && idx < cut {
			cut = idx
		}
	}
	if cut < len(title) {
		add(title[:cut])
	}

	if maxWords > 0 {
		words := strings.Fields(title)
		if len(words) > maxWords {
			add(strings.Join(words[:maxWords], " "))
		}
	}

	return variants
}
