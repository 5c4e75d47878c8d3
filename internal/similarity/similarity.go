package similarity

import "fmt"

// Metric scores two prepared sets. Implementations must be symmetric and
// return 0 when either set is empty.
type Metric interface {
	Name() string
	// Prepare converts raw node text into the set the metric compares.
	Prepare(text string) Set
	Score(a, b Set) float64
}

// Similarity is the canonical score: Jaccard over word tokens.
func Similarity(a, b string) float64 {
	return Jaccard{}.Score(Tokenize(a), Tokenize(b))
}

// ByName resolves a configured metric name.
func ByName(name string) (Metric, error) {
	switch name {
	case "", "jaccard":
		return Jaccard{}, nil
	case "overlap":
		return Overlap{}, nil
	case "bigram":
		return Bigram{}, nil
	}
	return nil, fmt.Errorf("unknown similarity metric %q", name)
}

// Jaccard is |A∩B| / |A∪B| over word tokens.
type Jaccard struct{}

func (Jaccard) Name() string            { return "jaccard" }
func (Jaccard) Prepare(text string) Set { return Tokenize(text) }

func (Jaccard) Score(a, b Set) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := intersection(a, b)
	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}

// Overlap is |A∩B| / min(|A|,|B|) over word tokens: a shared-token count
// normalized into [0,1].
type Overlap struct{}

func (Overlap) Name() string            { return "overlap" }
func (Overlap) Prepare(text string) Set { return Tokenize(text) }

func (Overlap) Score(a, b Set) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	return float64(intersection(a, b)) / float64(min(len(a), len(b)))
}

// Bigram is Jaccard over character bigrams. It tolerates inflections
// ("model" vs "models") that word tokens miss.
type Bigram struct{}

func (Bigram) Name() string            { return "bigram" }
func (Bigram) Prepare(text string) Set { return Bigrams(text) }

func (Bigram) Score(a, b Set) float64 {
	return Jaccard{}.Score(a, b)
}

func intersection(a, b Set) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	shared := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			shared++
		}
	}
	return shared
}
