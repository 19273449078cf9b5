// Package pattern loads skip patterns from cached files and strips
// their matches from input lines.
package pattern

import (
	"bufio"
	"io"
	"log"
	"os"
	"regexp"
	"strings"

	"github.com/suenchunyu/wordcount/internal/model"
)

// Set is an immutable, ordered collection of compiled skip patterns.
// Patterns keep the order they were first seen in, so overlapping
// patterns are always removed in the same sequence.
type Set struct {
	raw      []string
	compiled []*regexp.Regexp
}

// Empty is the set used when skip patterns are disabled.
var Empty = &Set{}

// Load reads every file line by line and adds each line verbatim as a
// pattern. A file that cannot be read is logged and contributes no
// patterns; a line that is not a valid expression is logged and dropped.
// Load never fails.
func Load(paths []string) *Set {
	b := newBuilder()
	for _, path := range paths {
		if err := b.addFile(path); err != nil {
			log.Printf("skip patterns: %v\n", err)
		}
	}
	return b.build()
}

// Parse builds a set from in-memory patterns, same rules as Load.
func Parse(patterns ...string) *Set {
	b := newBuilder()
	for _, p := range patterns {
		b.add(p)
	}
	return b.build()
}

func (s *Set) Len() int {
	return len(s.compiled)
}

// Patterns returns the source expressions in application order.
func (s *Set) Patterns() []string {
	return append([]string(nil), s.raw...)
}

type builder struct {
	seen map[string]struct{}
	set  *Set
}

func newBuilder() *builder {
	return &builder{
		seen: make(map[string]struct{}),
		set:  new(Set),
	}
}

func (b *builder) addFile(path string) error {
	fp, err := os.Open(path)
	if err != nil {
		return model.NewError(model.KindCacheRead, "open", path, err)
	}
	defer fp.Close()

	// A read error mid-file drops the whole file.
	var lines []string
	r := bufio.NewReader(fp)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			lines = append(lines, trimEOL(line))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.NewError(model.KindCacheRead, "read", path, err)
		}
	}

	for _, line := range lines {
		b.add(line)
	}
	return nil
}

func (b *builder) add(p string) {
	if _, ok := b.seen[p]; ok {
		return
	}
	b.seen[p] = struct{}{}

	re, err := regexp.Compile(p)
	if err != nil {
		log.Printf("skip patterns: %v\n", model.NewError(model.KindInvalidPattern, "compile", p, err))
		return
	}
	b.set.raw = append(b.set.raw, p)
	b.set.compiled = append(b.set.compiled, re)
}

func (b *builder) build() *Set {
	return b.set
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
