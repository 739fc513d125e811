package queries

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/omnixys/invoice-service/internal/apperrors"
	"github.com/omnixys/invoice-service/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Criteria is the raw filter input: criterion key -> value list. A key is only
// usable when its list holds exactly one value.
type Criteria map[string][]string

// KeyIssuedBy and KeyBilledTo name the participant criteria, used by callers
// that build the issuer-OR-recipient predicate.
const (
	KeyIssuedBy = "issuedBy"
	KeyBilledTo = "billedTo"
)

// timestampLayouts are tried in order when parsing a timestamp criterion.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseCriterion turns one (key, value) pair into a typed condition. Unknown
// keys and unparsable values yield a ParseError carrying the offending pair;
// nothing is ever silently coerced.
func ParseCriterion(key, value string) (Condition, error) {
	switch key {
	case "infoType":
		infoType, err := domain.ParseInfoType(value)
		if err != nil {
			return nil, &apperrors.ParseError{Key: key, Value: value, Err: err}
		}
		return InfoTypeIs{InfoType: infoType}, nil
	case "status":
		status, err := domain.ParseStatusType(value)
		if err != nil {
			return nil, &apperrors.ParseError{Key: key, Value: value, Err: err}
		}
		return StatusIs{Status: status}, nil
	case KeyIssuedBy:
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, &apperrors.ParseError{Key: key, Value: value, Err: err}
		}
		return IssuedByIs{ID: id}, nil
	case KeyBilledTo:
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, &apperrors.ParseError{Key: key, Value: value, Err: err}
		}
		return BilledToIs{ID: id}, nil
	case "dueDate":
		at, err := parseTimestamp(value)
		if err != nil {
			return nil, &apperrors.ParseError{Key: key, Value: value, Err: err}
		}
		return DueDateIs{At: at}, nil
	case "created":
		at, err := parseTimestamp(value)
		if err != nil {
			return nil, &apperrors.ParseError{Key: key, Value: value, Err: err}
		}
		return CreatedIs{At: at}, nil
	case "updated":
		at, err := parseTimestamp(value)
		if err != nil {
			return nil, &apperrors.ParseError{Key: key, Value: value, Err: err}
		}
		return UpdatedIs{At: at}, nil
	case "dueBefore":
		at, err := parseTimestamp(value)
		if err != nil {
			return nil, &apperrors.ParseError{Key: key, Value: value, Err: err}
		}
		return DueBefore{At: at}, nil
	case "dueAfter":
		at, err := parseTimestamp(value)
		if err != nil {
			return nil, &apperrors.ParseError{Key: key, Value: value, Err: err}
		}
		return DueAfter{At: at}, nil
	case "minAmount":
		amount, err := decimal.NewFromString(value)
		if err != nil {
			return nil, &apperrors.ParseError{Key: key, Value: value, Err: err}
		}
		return MinAmount{Amount: amount}, nil
	case "maxAmount":
		amount, err := decimal.NewFromString(value)
		if err != nil {
			return nil, &apperrors.ParseError{Key: key, Value: value, Err: err}
		}
		return MaxAmount{Amount: amount}, nil
	}
	return nil, &apperrors.ParseError{Key: key, Value: value, Err: fmt.Errorf("unknown criterion")}
}

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if at, err := time.Parse(layout, value); err == nil {
			return at, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp")
}

// Predicate is a composed filter: the conjunction of all conditions in All,
// AND-ed with each OR-group in AnyGroups (an invoice passes a group when at
// least one of its conditions matches). AND/OR are commutative, so evaluation
// order never changes the result.
type Predicate struct {
	All       []Condition
	AnyGroups [][]Condition
}

// Matches evaluates the predicate against an invoice in memory.
func (p *Predicate) Matches(inv domain.Invoice) bool {
	for _, cond := range p.All {
		if !cond.Matches(inv) {
			return false
		}
	}
	for _, group := range p.AnyGroups {
		matched := false
		for _, cond := range group {
			if cond.Matches(inv) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// And returns the conjunction of two predicates. Either side may be nil.
func (p *Predicate) And(other *Predicate) *Predicate {
	if p == nil {
		return other
	}
	if other == nil {
		return p
	}
	combined := &Predicate{
		All:       append(append([]Condition{}, p.All...), other.All...),
		AnyGroups: append(append([][]Condition{}, p.AnyGroups...), other.AnyGroups...),
	}
	return combined
}

// BuildAll composes an AND predicate from the criteria, all-or-nothing: any
// unknown key, unparsable value, or value list without exactly one element
// fails the whole build, so a bad filter never silently widens the result
// set. An empty criteria map returns (nil, nil) - the explicit "no filter"
// signal, distinct from a failed build.
func BuildAll(criteria Criteria) (*Predicate, error) {
	if len(criteria) == 0 {
		return nil, nil
	}

	// Keys are visited in sorted order so the same bad input always surfaces
	// the same parse error.
	keys := make([]string, 0, len(criteria))
	for key := range criteria {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	conditions := make([]Condition, 0, len(keys))
	for _, key := range keys {
		values := criteria[key]
		if len(values) != 1 {
			return nil, &apperrors.ParseError{
				Key:   key,
				Value: fmt.Sprintf("%v", values),
				Err:   fmt.Errorf("expected exactly one value, got %d", len(values)),
			}
		}
		cond, err := ParseCriterion(key, values[0])
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, cond)
	}

	if len(conditions) == 0 {
		return nil, &apperrors.ParseError{Err: fmt.Errorf("no usable criteria")}
	}
	return &Predicate{All: conditions}, nil
}

// BuildAny composes an OR predicate from the subset of criteria named by
// keys. The failure policy is soft: missing keys, multi-value lists and
// unparsable values are skipped, not fatal. It returns nil only when no
// fragment in the subset parses.
func BuildAny(criteria Criteria, keys []string) *Predicate {
	group := make([]Condition, 0, len(keys))
	for _, key := range keys {
		values, ok := criteria[key]
		if !ok || len(values) != 1 {
			continue
		}
		cond, err := ParseCriterion(key, values[0])
		if err != nil {
			continue
		}
		group = append(group, cond)
	}
	if len(group) == 0 {
		return nil
	}
	return &Predicate{AnyGroups: [][]Condition{group}}
}
