// Package config parses the OSD's CLI surface: mon_addrs=, name=,
// log_level=, and opaque passthrough flags (notably NOOP_WRITE),
// exactly the grammar original_source/src/main.c's parse_options
// walks token by token. The per-token grammar is built with the
// teacher's own PEG combinator library, generalized from
// scm/packrat.go's Scheme-syntax grammar to this flat key[=value]
// shape.
package config

import (
	"fmt"
	"strconv"
	"strings"

	packrat "github.com/launix-de/go-packrat/v2"
)

var (
	keyParser   = packrat.NewRegexParser(`[A-Za-z_][A-Za-z0-9_.]*`, false, false)
	eqParser    = packrat.NewAtomParser("=", false, false)
	valueParser = packrat.NewRegexParser(`.*`, false, false)
	tokenParser = packrat.NewAndParser(
		keyParser,
		packrat.NewMaybeParser(packrat.NewAndParser(eqParser, valueParser)),
		packrat.NewEndParser(true),
	)
)

// Options is the parsed CLI surface (§6): required mon_addrs and
// name, optional log_level, and everything else as opaque passthrough
// -- of which NOOP_WRITE is the one flag this core's op handlers
// consult directly.
type Options struct {
	MonAddrs    []string
	Name        string
	OsdID       int
	LogLevel    int
	NoopWrite   bool
	Passthrough map[string]string
}

// Parse walks argv the same way parse_options does: one token at a
// time, mon_addrs and log_level handled specially, everything else
// passed through.
func Parse(args []string) (*Options, error) {
	opts := &Options{Passthrough: make(map[string]string)}

	for _, arg := range args {
		key, value, hasValue, err := parseToken(arg)
		if err != nil {
			return nil, fmt.Errorf("config: invalid option %q: %w", arg, err)
		}

		switch key {
		case "mon_addrs":
			if !hasValue {
				return nil, fmt.Errorf("config: mon_addrs requires a value")
			}
			opts.MonAddrs = strings.Split(value, ",")
		case "log_level":
			if !hasValue {
				return nil, fmt.Errorf("config: log_level requires a value")
			}
			lvl, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("config: invalid log_level %q: %w", value, err)
			}
			opts.LogLevel = lvl
		case "name":
			if !hasValue {
				return nil, fmt.Errorf("config: name requires a value")
			}
			opts.Name = value
			id, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("config: name %q is not a valid osd id: %w", value, err)
			}
			opts.OsdID = id
		case "NOOP_WRITE":
			opts.NoopWrite = true
			opts.Passthrough[key] = value
		default:
			opts.Passthrough[key] = value
		}
	}

	if len(opts.MonAddrs) == 0 {
		return nil, fmt.Errorf("config: no 'mon_addrs' option provided")
	}
	if opts.Name == "" {
		return nil, fmt.Errorf("config: no 'name' option provided")
	}

	return opts, nil
}

func parseToken(tok string) (key, value string, hasValue bool, err error) {
	scanner := packrat.NewScanner(tok, packrat.SkipWhitespaceAndCommentsRegex)
	node, perr := packrat.Parse(tokenParser, scanner)
	if perr != nil {
		return "", "", false, perr
	}
	key = node.Children[0].Matched
	maybe := node.Children[1]
	if len(maybe.Children) > 0 {
		pair := maybe.Children[0]
		value = pair.Children[1].Matched
		hasValue = true
	}
	return key, value, hasValue, nil
}
