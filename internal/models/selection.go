package models

import "time"

// Selection is the user's filter state. Zero bounds and empty sets do not restrict.
type Selection struct {
	From    time.Time `json:"from,omitempty"`
	To      time.Time `json:"to,omitempty"`
	Batches []string  `json:"batches,omitempty"`
	Exams   []string  `json:"exams,omitempty"`
	Plans   []string  `json:"plans,omitempty"`

	// MatchNone marks a selection whose set restrictions cannot be satisfied.
	MatchNone bool `json:"match_none,omitempty"`
}

// IsZero reports whether s restricts nothing.
func (s Selection) IsZero() bool {
	return s.From.IsZero() && s.To.IsZero() && len(s.Batches) == 0 && len(s.Exams) == 0 && len(s.Plans) == 0 && !s.MatchNone
}

// Combine returns the selection equivalent to filtering by a and then by b.
func Combine(a, b Selection) Selection {
	out := Selection{From: a.From, To: a.To, MatchNone: a.MatchNone || b.MatchNone}
	if b.From.After(out.From) {
		out.From = b.From
	}
	if !b.To.IsZero() && (out.To.IsZero() || b.To.Before(out.To)) {
		out.To = b.To
	}

	var empty bool
	out.Batches, empty = intersect(a.Batches, b.Batches)
	out.MatchNone = out.MatchNone || empty
	out.Exams, empty = intersect(a.Exams, b.Exams)
	out.MatchNone = out.MatchNone || empty
	out.Plans, empty = intersect(a.Plans, b.Plans)
	out.MatchNone = out.MatchNone || empty
	return out
}

// intersect keeps a's order. empty is true when both sides restrict and share nothing.
func intersect(a, b []string) (out []string, empty bool) {
	switch {
	case len(a) == 0:
		return append([]string(nil), b...), false
	case len(b) == 0:
		return append([]string(nil), a...), false
	}
	inB := make(map[string]struct{}, len(b))
	for _, v := range b {
		inB[v] = struct{}{}
	}
	seen := make(map[string]struct{}, len(a))
	for _, v := range a {
		if _, ok := inB[v]; !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, len(out) == 0
}
