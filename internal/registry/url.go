package registry

import (
	"regexp"
	"strings"

	"github.com/harmonyui/harmonycn/internal/config"
	"github.com/harmonyui/harmonycn/internal/errors"
)

// Repository layout of a registry that lives in a Git repository.
const (
	// SourceRoot holds component sources, one directory per style.
	SourceRoot = "registry"

	// OutputRoot holds the built JSON documents served to clients.
	OutputRoot = "public/r"

	rawContentBase = "https://raw.githubusercontent.com"
)

var githubRepoURL = regexp.MustCompile(`^https?://(?:www\.)?github\.com/([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+?)(?:\.git)?/?$`)

// NormalizeURL turns a registry setting into the base URL documents are
// fetched from. Blank selects the default registry. A GitHub repository URL
// becomes the raw content URL of its built output on branch, or on the
// default branch when branch is empty. Other http(s) and s3 URLs only lose
// trailing slashes.
func NormalizeURL(registryURL, branch string) (string, error) {
	registryURL = strings.TrimSpace(registryURL)
	if registryURL == "" {
		return config.DefaultRegistry, nil
	}
	if m := githubRepoURL.FindStringSubmatch(registryURL); m != nil {
		if branch == "" {
			branch = config.DefaultBranch
		}
		return rawContentBase + "/" + m[1] + "/" + m[2] + "/refs/heads/" + branch + "/" + OutputRoot, nil
	}
	for _, scheme := range []string{"https://", "http://", "s3://"} {
		if strings.HasPrefix(registryURL, scheme) && len(registryURL) > len(scheme) {
			return strings.TrimRight(registryURL, "/"), nil
		}
	}
	return "", errors.New(errors.CodeValidation).
		WithDetail("unsupported registry url " + registryURL).
		WithSuggestion("Use an http(s):// URL, a GitHub repository URL or s3://bucket/prefix")
}

// StylePath is the document path of item name in style.
func StylePath(style, name string) string {
	return "styles/" + style + "/" + name + ".json"
}

// ColorPath is the document path of a base color.
func ColorPath(baseColor string) string {
	return "colors/" + baseColor + ".json"
}

// SourcePath is the repository path of a component source file.
func SourcePath(style, filePath string) string {
	return SourceRoot + "/" + style + "/" + strings.TrimPrefix(filePath, "/")
}

// OutputPath is the repository path a built style item is written to.
func OutputPath(style, name string) string {
	return OutputRoot + "/" + StylePath(style, name)
}
