package storage

import (
	"fmt"
	"path"
	"strings"
)

// refMapper converts between blob paths and the URLs recorded on documents
type refMapper struct {
	base string
}

func newRefMapper(publicBaseURL string) refMapper {
	return refMapper{base: strings.TrimSuffix(publicBaseURL, "/")}
}

// url returns the address a client fetches the blob from
func (m refMapper) url(p string) string {
	if m.base == "" {
		return p
	}
	return m.base + "/" + p
}

// path accepts a URL produced by url or a bare path and returns a clean relative path
func (m refMapper) path(ref string) (string, error) {
	p := ref
	if m.base != "" {
		p = strings.TrimPrefix(p, m.base)
	}
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "", fmt.Errorf("empty blob path")
	}

	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("path escapes blob store: %s", ref)
	}
	return clean, nil
}
