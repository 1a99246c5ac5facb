package bserve

import (
	"slices"

	"github.com/advdv/bserve/internal/pathpattern"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// namedPatterns keeps the patterns registered under a name so urls can be built from them.
type namedPatterns struct {
	pats map[string]*pathpattern.Pattern
}

func newNamedPatterns() *namedPatterns {
	return &namedPatterns{make(map[string]*pathpattern.Pattern)}
}

func (n *namedPatterns) add(name string, pat *pathpattern.Pattern) error {
	if _, exists := n.pats[name]; exists {
		return errors.Newf("pattern with name %q already exists", name)
	}

	n.pats[name] = pat

	return nil
}

func (n *namedPatterns) build(name string, vals ...string) (string, error) {
	pat, ok := n.pats[name]
	if !ok {
		return "", errors.Newf("no pattern named: %q, got: %v", name, n.sorted())
	}

	res, err := pathpattern.Build(pat, vals...)
	if err != nil {
		return "", errors.Wrapf(err, "build %q", name)
	}

	return res, nil
}

// merge copies every name of other. Nothing is copied when any name conflicts.
func (n *namedPatterns) merge(other *namedPatterns) error {
	names := other.sorted()
	for _, name := range names {
		if _, exists := n.pats[name]; exists {
			return errors.Newf("pattern with name %q already exists", name)
		}
	}

	for _, name := range names {
		n.pats[name] = other.pats[name]
	}

	return nil
}

func (n *namedPatterns) sorted() []string {
	names := lo.Keys(n.pats)
	slices.Sort(names)

	return names
}
