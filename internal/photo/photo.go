package photo

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidTag = errors.New("photo tag must be before or after")
	ErrInvalidURL = errors.New("photo url must be an absolute http(s) url")
)

type Tag string

const (
	TagBefore Tag = "before"
	TagAfter  Tag = "after"
)

func (t Tag) Valid() bool {
	return t == TagBefore || t == TagAfter
}

type Photo struct {
	ID      uuid.UUID `json:"id" db:"id"`
	ChildID uuid.UUID `json:"child_id" db:"child_id"`
	Tag     Tag       `json:"tag" db:"tag"`
	URL     string    `json:"url" db:"url"`
	TakenAt time.Time `json:"taken_at" db:"taken_at"`
}

type Pair struct {
	Before *Photo `json:"before"`
	After  *Photo `json:"after"`
}

// PairBeforeAfter greedily matches each before photo, oldest first, with the
// earliest unused after photo taken strictly later. Befores without a later
// after are left out.
func PairBeforeAfter(photos []*Photo) []Pair {
	var befores, afters []*Photo
	for _, p := range photos {
		switch p.Tag {
		case TagBefore:
			befores = append(befores, p)
		case TagAfter:
			afters = append(afters, p)
		}
	}
	byTime := func(ps []*Photo) {
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].TakenAt.Before(ps[j].TakenAt) })
	}
	byTime(befores)
	byTime(afters)

	used := make([]bool, len(afters))
	pairs := make([]Pair, 0, min(len(befores), len(afters)))
	for _, b := range befores {
		for i, a := range afters {
			if used[i] || !a.TakenAt.After(b.TakenAt) {
				continue
			}
			used[i] = true
			pairs = append(pairs, Pair{Before: b, After: a})
			break
		}
	}
	return pairs
}
