package archive

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultTag prefixes every locator handed to clients.
const DefaultTag = "SESS"

var ErrInvalidLocator = errors.New("archive: invalid locator")

// Derive converts a share URL into the compact locator sent to clients.
// Modern URLs carry the object id and key as "/file/ID#KEY"; legacy URLs use
// the "/#!ID!KEY" form. Anything else falls through as the raw URL so the
// bundle stays reachable even when the store changes its link shape.
func Derive(tag, rawURL string) string {
	if tag == "" {
		tag = DefaultTag
	}
	if idx := strings.Index(rawURL, "/file/"); idx >= 0 {
		return tag + "~" + rawURL[idx+len("/file/"):]
	}
	if idx := strings.Index(rawURL, "/#!"); idx >= 0 {
		return tag + "~" + strings.ReplaceAll(rawURL[idx+len("/#!"):], "!", "#")
	}
	return tag + "~" + rawURL
}

// Parse splits a well-formed locator into object id and key hex. Fallback
// locators carrying a raw URL do not parse.
func Parse(tag, locator string) (objectID, keyHex string, err error) {
	if tag == "" {
		tag = DefaultTag
	}
	body, found := strings.CutPrefix(locator, tag+"~")
	if !found {
		return "", "", fmt.Errorf("%w: missing %q prefix", ErrInvalidLocator, tag+"~")
	}
	objectID, keyHex, found = strings.Cut(body, "#")
	if !found || objectID == "" || keyHex == "" {
		return "", "", fmt.Errorf("%w: want ID#KEY, got %q", ErrInvalidLocator, body)
	}
	return objectID, keyHex, nil
}

// ShareURL builds the canonical share URL for an uploaded object.
func ShareURL(publicHost, objectID, keyHex string) string {
	return fmt.Sprintf("https://%s/file/%s#%s", publicHost, objectID, keyHex)
}

// Reconstruct rebuilds the canonical share URL from a well-formed locator.
func Reconstruct(tag, publicHost, locator string) (string, error) {
	objectID, keyHex, err := Parse(tag, locator)
	if err != nil {
		return "", err
	}
	return ShareURL(publicHost, objectID, keyHex), nil
}
