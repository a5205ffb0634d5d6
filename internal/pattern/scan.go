package pattern

import (
	"sort"

	"golang.org/x/sync/errgroup"

	"candlescan/pkg/model"
)

// Scanner applies every registered rule at every offset of a series
type Scanner struct {
	// Workers > 1 evaluates rules concurrently
	Workers int
}

// NewScanner creates a scanner with the given worker count
func NewScanner(workers int) *Scanner {
	return &Scanner{Workers: workers}
}

// Scan runs a sequential scan of series with reg
func Scan(series []model.AnnotatedCandle, reg *Registry) ([]Match, error) {
	return (&Scanner{Workers: 1}).Scan(series, reg)
}

type ordered struct {
	Match
	order int
}

// Scan returns all matches ordered by window start, then by registry order.
// A rule longer than the series contributes nothing.
func (s *Scanner) Scan(series []model.AnnotatedCandle, reg *Registry) ([]Match, error) {
	if reg == nil {
		return nil, ErrNilRegistry
	}
	rules := reg.acquire()
	defer reg.release()

	perRule := make([][]ordered, len(rules))

	if s.Workers <= 1 || len(rules) <= 1 {
		for i, rule := range rules {
			perRule[i] = evaluateRule(series, rule, i)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(s.Workers)
		for i, rule := range rules {
			i, rule := i, rule
			g.Go(func() error {
				perRule[i] = evaluateRule(series, rule, i)
				return nil
			})
		}
		_ = g.Wait()
	}

	var all []ordered
	for _, matches := range perRule {
		all = append(all, matches...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return all[i].order < all[j].order
	})

	out := make([]Match, len(all))
	for i, m := range all {
		out[i] = m.Match
	}
	return out, nil
}

func evaluateRule(series []model.AnnotatedCandle, rule Rule, order int) []ordered {
	n := rule.WindowLength()
	var out []ordered
	for start := 0; start+n <= len(series); start++ {
		// capped so a rule cannot append into the caller's series
		w := Window(series[start : start+n : start+n])
		m, ok := rule.Evaluate(w)
		if !ok {
			continue
		}
		m.Rule = rule.Name()
		m.Start = start
		m.Length = n
		out = append(out, ordered{Match: m, order: order})
	}
	return out
}

// EvaluationCount is the number of windows a scan of a series of
// length seriesLen evaluates with reg
func EvaluationCount(seriesLen int, reg *Registry) int {
	if reg == nil {
		return 0
	}
	total := 0
	for _, rule := range reg.Rules() {
		if k := seriesLen - rule.WindowLength() + 1; k > 0 {
			total += k
		}
	}
	return total
}
