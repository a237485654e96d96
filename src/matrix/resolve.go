package matrix

import (
	"errors"
	"fmt"
	"strings"
)

// Resolution errors. Callers classify with errors.Is; the wrapped
// message names the offending selector or token.
var (
	ErrUnknownSelector = errors.New("unknown build variant")
	ErrInvalidOption   = errors.New("invalid variant option")
)

// Resolve maps a selector string to its build configuration. The wheel
// and ci families resolve by literal lookup; openblas-* selectors are
// decomposed into platform, python and mode tokens, each matched
// against its typed set. Resolution is pure: no environment,
// filesystem or clock access, and the same selector always yields an
// identical record.
func Resolve(selector string) (Variant, error) {
	if v, ok := lookup[selector]; ok {
		return v, nil
	}
	if rest, ok := strings.CutPrefix(selector, "openblas-"); ok {
		return resolveOpenBLAS(selector, rest)
	}
	return Variant{}, fmt.Errorf("%w: %q", ErrUnknownSelector, selector)
}

// resolveOpenBLAS decomposes <platform>-<python>[-dev]. Each token
// class is matched independently; the first failing class aborts with
// the offending token named.
func resolveOpenBLAS(selector, rest string) (Variant, error) {
	tokens := strings.Split(rest, "-")

	platform, ok := platformFromToken(tokens[0])
	if !ok {
		return Variant{}, fmt.Errorf("%w: %q is not a platform (amd64, arm64)", ErrInvalidOption, tokens[0])
	}

	if len(tokens) < 2 {
		return Variant{}, fmt.Errorf("%w: %q is missing a python version token (py36-py39)", ErrInvalidOption, selector)
	}
	python, ok := pythonFromToken(tokens[1])
	if !ok {
		return Variant{}, fmt.Errorf("%w: %q is not a python version (py36, py37, py38, py39)", ErrInvalidOption, tokens[1])
	}

	dev := false
	switch {
	case len(tokens) == 2:
	case len(tokens) == 3 && tokens[2] == "dev":
		dev = true
	default:
		return Variant{}, fmt.Errorf("%w: %q is not a build mode (only \"dev\" may follow the python version)", ErrInvalidOption, strings.Join(tokens[2:], "-"))
	}

	return openblasVariant(platform, python, dev), nil
}

func platformFromToken(tok string) (Platform, bool) {
	for _, p := range platforms {
		if p.Token() == tok {
			return p, true
		}
	}
	return "", false
}

func pythonFromToken(tok string) (PythonVersion, bool) {
	for _, py := range pythonVersions {
		if py.Token() == tok {
			return py, true
		}
	}
	return "", false
}
