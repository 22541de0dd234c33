package entities

import (
	"strings"
)

var githubPrefixes = []string{"https://github.com/", "http://github.com/"}

// ParseRepoURL validates a GitHub repository URL and extracts owner and name.
// The URL must carry at least owner and repository path segments.
func ParseRepoURL(url string) (owner, name string, err error) {
	supported := false
	for _, prefix := range githubPrefixes {
		if strings.HasPrefix(url, prefix) {
			supported = true
			break
		}
	}
	if !supported {
		return "", "", &ValidationError{Field: "repo_url", Message: "Only GitHub URLs are currently supported"}
	}

	if strings.ContainsAny(url, " \t\r\n") {
		return "", "", &ValidationError{Field: "repo_url", Message: "Invalid GitHub repository URL format"}
	}

	trimmed := strings.TrimRight(url, "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 5 {
		return "", "", &ValidationError{Field: "repo_url", Message: "Invalid GitHub repository URL format"}
	}

	owner = parts[3]
	name = strings.TrimSuffix(parts[4], ".git")
	if owner == "" || name == "" {
		return "", "", &ValidationError{Field: "repo_url", Message: "Invalid GitHub repository URL format"}
	}

	return owner, name, nil
}
