package limiter

// Algorithm kinds
const (
	AlgorithmTokenBucket   = "token_bucket"
	AlgorithmLeakyBucket   = "leaky_bucket"
	AlgorithmFixedWindow   = "fixed_window"
	AlgorithmSlidingWindow = "sliding_window"

	// AlgorithmNoLimit tags decisions made for keys without any configuration.
	AlgorithmNoLimit = "no_limit"
)

// NoLimitRemaining is the remaining quota reported when no limit is configured.
const NoLimitRemaining = 999999

// validAlgorithms holds the algorithm kinds a Config may name.
var validAlgorithms = map[string]bool{
	AlgorithmTokenBucket:   true,
	AlgorithmLeakyBucket:   true,
	AlgorithmFixedWindow:   true,
	AlgorithmSlidingWindow: true,
}

// Algorithms returns the supported algorithm kinds in a stable order.
func Algorithms() []string {
	return []string{
		AlgorithmTokenBucket,
		AlgorithmLeakyBucket,
		AlgorithmFixedWindow,
		AlgorithmSlidingWindow,
	}
}

// ValidAlgorithm reports whether name is a supported algorithm kind.
func ValidAlgorithm(name string) bool {
	return validAlgorithms[name]
}
