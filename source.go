package kmerdb

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseColorList parses a comma separated list of colours and ranges such as
// "0,2-4,7". Ranges may run downwards ("3-1" is 3,2,1); order is kept.
func ParseColorList(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: empty colour list", ErrInvalidOption)
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		a, err := strconv.Atoi(lo)
		if err != nil || a < 0 {
			return nil, fmt.Errorf("%w: colour %q in %q", ErrInvalidOption, lo, s)
		}
		if !isRange {
			out = append(out, a)
			continue
		}
		b, err := strconv.Atoi(hi)
		if err != nil || b < 0 {
			return nil, fmt.Errorf("%w: colour %q in %q", ErrInvalidOption, hi, s)
		}
		step := 1
		if b < a {
			step = -1
		}
		for c := a; ; c += step {
			out = append(out, c)
			if c == b {
				break
			}
		}
	}
	return out, nil
}

// ParseSource splits a graph reference of the form "path:colours", for
// example "sample.kdbg:0,2-3", into the path and the options that load the
// listed colours. A reference without a colour list loads every colour.
// Only the text after the last colon is considered, and only when it parses
// as a colour list, so paths containing colons still work.
func ParseSource(ref string) (string, []Option, error) {
	i := strings.LastIndexByte(ref, ':')
	if i < 0 {
		return ref, nil, nil
	}
	path, list := ref[:i], ref[i+1:]
	if list == "" {
		return path, nil, nil
	}
	if strings.Trim(list, "0123456789,- ") != "" {
		return ref, nil, nil
	}
	colors, err := ParseColorList(list)
	if err != nil {
		return "", nil, err
	}
	return path, []Option{WithColors(colors...)}, nil
}
