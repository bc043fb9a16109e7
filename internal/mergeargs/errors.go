package mergeargs

import "errors"

var (
	ErrMissingKey         = errors.New("Merge arguments must declare a key.")
	ErrListInsertion      = errors.New("Insertions cannot be made into a list.")
	ErrMixedExpansion     = errors.New("Expansions cannot be mixed with single key declarations.")
	ErrUnmatchedExpansion = errors.New(`Each opening "[[" must be matched by a closing "]]" without nesting.`)
)
