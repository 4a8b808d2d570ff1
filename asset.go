package trading

import (
	"fmt"
	"strings"
)

type Asset string

type PairSymbol string

// Pair is the canonical BASE/QUOTE identification of a trading pair.
// Venue adapters are responsible for mapping pairs to their native
// symbols and back.
type Pair struct {
	Base, Quote Asset
}

func ParsePair(value string) (Pair, error) {
	symbols := strings.Split(value, "/")
	if len(symbols) != 2 || len(symbols[0]) == 0 || len(symbols[1]) == 0 {
		return Pair{}, fmt.Errorf("malformed pair: [%v]", value)
	}

	return Pair{
		Base:  Asset(symbols[0]),
		Quote: Asset(symbols[1]),
	}, nil
}

func (p Pair) Symbol() PairSymbol {
	return PairSymbol(p.Base + p.Quote)
}

func (p Pair) String() string {
	return string(p.Base) + "/" + string(p.Quote)
}
