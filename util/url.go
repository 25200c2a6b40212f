package util

import (
	"errors"
	"net/url"
	"path"
	"strings"
)

var (
	ErrNoFilename = errors.New("cannot extract valid filename")
)

// FilenameFromURL returns the last path element of a URL, ignoring the query.
func FilenameFromURL(u *url.URL) (string, error) {
	if u == nil {
		return "", ErrNoFilename
	}
	filename := path.Base(strings.Trim(u.Path, "/"))
	// Don't allow "filenames" that are just ".", "..", "/", etc.
	if strings.Trim(filename, "./") == "" {
		return "", ErrNoFilename
	}
	return filename, nil
}

func FilenameFromURLString(s string) (string, error) {
	if parsedURL, err := url.Parse(s); err != nil {
		return "", err
	} else {
		return FilenameFromURL(parsedURL)
	}
}

// ExtensionFromURL returns the lower-cased extension (with the leading dot) of the file a URL points at, or "" if
// there isn't one. CDN URLs often carry signatures in the query, which is ignored.
func ExtensionFromURL(s string) string {
	filename, err := FilenameFromURLString(s)
	if err != nil {
		return ""
	}
	return strings.ToLower(path.Ext(filename))
}
