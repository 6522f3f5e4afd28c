package repos

import (
	"sort"
	"strings"
)

// MaxResults caps the number of links returned for one query.
const MaxResults = 5

const (
	scoreExactName = 3
	scoreNameHas   = 2
	scoreTagHas    = 1
)

// Match scores every repo against query and returns up to MaxResults links,
// best first. Comparison is case-insensitive: an exact name match scores 3,
// a name containing the query 2, and any tag containing it 1; the three add
// up. Repos scoring zero are left out and ties keep catalog order.
//
// The query is trimmed before matching, so " UFOgram " finds UFOgram. A query
// that is empty after trimming returns no links rather than every repo, even
// though every name trivially contains "".
func Match(catalog []Repo, query string) []Link {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []Link{}
	}

	type scored struct {
		repo  Repo
		score int
	}
	var hits []scored
	for _, r := range catalog {
		if s := score(r, q); s > 0 {
			hits = append(hits, scored{repo: r, score: s})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})
	if len(hits) > MaxResults {
		hits = hits[:MaxResults]
	}

	links := make([]Link, len(hits))
	for i, h := range hits {
		links[i] = Link{Name: h.repo.Name, URL: h.repo.URL}
	}
	return links
}

func score(r Repo, q string) int {
	name := strings.ToLower(r.Name)
	s := 0
	if name == q {
		s += scoreExactName
	}
	if strings.Contains(name, q) {
		s += scoreNameHas
	}
	for _, tag := range r.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			s += scoreTagHas
			break
		}
	}
	return s
}
