package analyze

import (
	"regexp"
	"sort"
	"strings"

	"github.com/AstraSolis/quicklog/internal/pkg/logql"
	"github.com/AstraSolis/quicklog/pkg/model"
)

// newEntryFilter compiles the options into a single predicate; all
// populated constraints must hold. A nil filter means no constraint.
// An invalid Regex applies no filter; an invalid Where expression is
// an error.
func newEntryFilter(opts model.QueryOptions) (func(*model.LogEntry) bool, error) {
	var preds []func(*model.LogEntry) bool

	if opts.StartTime != "" {
		start := opts.StartTime
		preds = append(preds, func(e *model.LogEntry) bool {
			return e.Timestamp >= start
		})
	}
	if opts.EndTime != "" {
		end := opts.EndTime
		preds = append(preds, func(e *model.LogEntry) bool {
			return e.Timestamp <= end
		})
	}
	if len(opts.Levels) > 0 {
		set := make(map[model.Level]struct{}, len(opts.Levels))
		for _, l := range opts.Levels {
			set[l] = struct{}{}
		}
		preds = append(preds, func(e *model.LogEntry) bool {
			_, ok := set[e.Level]
			return ok
		})
	}
	if len(opts.Categories) > 0 {
		set := make(map[model.Category]struct{}, len(opts.Categories))
		for _, c := range opts.Categories {
			set[c] = struct{}{}
		}
		preds = append(preds, func(e *model.LogEntry) bool {
			_, ok := set[e.Module.Category]
			return ok
		})
	}
	if len(opts.Sources) > 0 {
		set := make(map[model.Source]struct{}, len(opts.Sources))
		for _, s := range opts.Sources {
			set[s] = struct{}{}
		}
		preds = append(preds, func(e *model.LogEntry) bool {
			_, ok := set[e.Source]
			return ok
		})
	}
	if opts.Keyword != "" {
		kw := strings.ToLower(opts.Keyword)
		preds = append(preds, func(e *model.LogEntry) bool {
			return strings.Contains(strings.ToLower(e.Message), kw) ||
				strings.Contains(strings.ToLower(e.Module.Filename), kw)
		})
	}
	if opts.Regex != "" {
		if re, err := regexp.Compile(opts.Regex); err == nil {
			preds = append(preds, func(e *model.LogEntry) bool {
				return re.MatchString(e.Message) || re.MatchString(e.Module.Filename)
			})
		}
	}
	if opts.Where != "" {
		expr, err := logql.Compile(opts.Where)
		if err != nil {
			return nil, err
		}
		preds = append(preds, expr.Match)
	}

	if len(preds) == 0 {
		return nil, nil
	}
	return func(e *model.LogEntry) bool {
		for _, p := range preds {
			if !p(e) {
				return false
			}
		}
		return true
	}, nil
}

// sortEntries orders entries in place. Ties keep their scan order, so
// entries from the same file stay in write order.
func sortEntries(entries []*model.LogEntry, by model.SortField, order model.SortOrder) {
	if by == "" {
		by = model.SortByTimestamp
	}
	if order == "" {
		order = model.OrderDesc
	}

	var less func(a, b *model.LogEntry) bool
	switch by {
	case model.SortByLevel:
		less = func(a, b *model.LogEntry) bool { return a.Level < b.Level }
	case model.SortByCategory:
		less = func(a, b *model.LogEntry) bool { return a.Module.Category < b.Module.Category }
	case model.SortBySource:
		less = func(a, b *model.LogEntry) bool { return a.Source < b.Source }
	default:
		less = func(a, b *model.LogEntry) bool { return a.Timestamp < b.Timestamp }
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if order == model.OrderAsc {
			return less(entries[i], entries[j])
		}
		return less(entries[j], entries[i])
	})
}

// paginate applies offset then limit. An offset past the end yields an
// empty result; a zero limit means unlimited.
func paginate(entries []*model.LogEntry, offset, limit int) []*model.LogEntry {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(entries) {
		return nil
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}
