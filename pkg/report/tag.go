package report

import "fmt"

// CommentTag returns the hidden marker that identifies a comment posted for
// a tool and source directory, so that a later run updates it in place.
func CommentTag(namespace, version, toolName, sourceDir string) string {
	return fmt.Sprintf("<!-- %s@v%s : %s, %s -->", namespace, version, toolName, sourceDir)
}

// WithTag appends the comment tag to a comment body.
func WithTag(body, tag string) string {
	return body + "\n" + tag
}
