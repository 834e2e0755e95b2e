package transform

import (
	"context"
	"regexp"
	"strings"
)

// importSpecifier matches a quoted module path starting with "@/".
var importSpecifier = regexp.MustCompile(`(["'])@/([^"'\s]*)(["'])`)

// ImportAliases rewrites "@/registry/<style>/..." and "@/lib/utils" import
// specifiers to the project's configured aliases. Specifiers the project
// has no alias for are left alone.
func ImportAliases() Transformer {
	return Func(func(_ context.Context, in Input) (string, error) {
		if !strings.Contains(in.Raw, "@/") {
			return in.Raw, nil
		}
		return importSpecifier.ReplaceAllStringFunc(in.Raw, func(m string) string {
			parts := importSpecifier.FindStringSubmatch(m)
			quote, spec := parts[1], parts[2]
			if parts[3] != quote {
				return m
			}
			if rewritten, ok := rewriteSpecifier(spec, in); ok {
				return quote + rewritten + quote
			}
			return m
		}), nil
	})
}

func rewriteSpecifier(spec string, in Input) (string, bool) {
	if spec == "lib/utils" && in.Aliases.Utils != "" {
		return in.Aliases.Utils, true
	}

	prefix := "registry/" + in.Style + "/"
	if in.Style == "" || !strings.HasPrefix(spec, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(spec, prefix)

	rules := []struct {
		dir   string
		alias string
	}{
		{"ui/", in.Aliases.UI},
		{"lib/", in.Aliases.Lib},
		{"hooks/", in.Aliases.Hooks},
	}
	for _, r := range rules {
		if r.alias != "" && strings.HasPrefix(rest, r.dir) {
			return strings.TrimRight(r.alias, "/") + "/" + strings.TrimPrefix(rest, r.dir), true
		}
	}

	if in.Aliases.Components == "" {
		return "", false
	}
	return strings.TrimRight(in.Aliases.Components, "/") + "/" + rest, true
}
