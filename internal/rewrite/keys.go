// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rewrite

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// KeyDeriver turns a reference target into the key handed to the Resolver.
// An empty key means the reference cannot be resolved.
type KeyDeriver func(target string) string

// BasenameKey keys images by file name: directory components carry no
// identity, and both '/' and '\' separate them.
func BasenameKey(target string) string {
	target = strings.TrimSpace(target)
	if i := strings.LastIndexAny(target, `/\`); i >= 0 {
		target = target[i+1:]
	}
	return strings.TrimSpace(target)
}

// CandidateFunc expands a key into the ordered list of store keys a
// StoreResolver tries. The first hit wins.
type CandidateFunc func(key string) []string

// ExactKey tries the key and nothing else.
func ExactKey(key string) []string {
	return []string{key}
}

var pageImagePattern = regexp.MustCompile(`page(\d+)_img(\d+)`)

// PageImageCandidates tries, in order: the key itself, the key with spaces
// removed, the key with zero-padded page/image numbers normalised, the key
// without its extension, and the bare canonical pageN_imgM name with and
// without the extension. It never guesses beyond that chain.
func PageImageCandidates(key string) []string {
	out := []string{key}
	seen := map[string]bool{key: true}
	add := func(k string) {
		if k != "" && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}

	compact := strings.ReplaceAll(key, " ", "")
	add(compact)

	m := pageImagePattern.FindStringSubmatch(compact)
	var canonical string
	if m != nil {
		pageNum, _ := strconv.Atoi(m[1])
		imgNum, _ := strconv.Atoi(m[2])
		canonical = fmt.Sprintf("page%d_img%d", pageNum, imgNum)
		add(strings.Replace(compact, m[0], canonical, 1))
	}

	ext := path.Ext(compact)
	add(strings.TrimSuffix(compact, ext))

	if canonical != "" {
		add(canonical + ext)
		add(canonical)
	}
	return out
}
