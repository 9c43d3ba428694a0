// Package all registers every source adapter. Importing it for side
// effects gives a binary the full connector registry.
package all

import (
	_ "compilatio/internal/source/bodleian"
	_ "compilatio/internal/source/cambridge"
	_ "compilatio/internal/source/durham"
	_ "compilatio/internal/source/harvard"
	_ "compilatio/internal/source/huntington"
	_ "compilatio/internal/source/parker"
	_ "compilatio/internal/source/wren"
	_ "compilatio/internal/source/yale"
)
