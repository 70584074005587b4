package registry

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/giantswarm/brokerd/internal/brokerapi"
	brokerstrings "github.com/giantswarm/brokerd/pkg/strings"
)

// Mode selects the lexical matching strategy.
type Mode string

const (
	ModeLiteral Mode = "literal"
	ModeRegex   Mode = "regex"
	ModeFuzzy   Mode = "fuzzy"
)

// KindFilter narrows results to tools, skills, or both.
type KindFilter string

const (
	KindAny   KindFilter = "any"
	KindTools KindFilter = "tools"
	KindSkils KindFilter = "skills"
)

// Filters narrows a query beyond the lexical match.
type Filters struct {
	Servers  []string
	Tags     []string
	RiskTier string
	Requires []string // parameter names that must appear in input_schema
}

// Query is the search(...) contract of spec §4.1.
type Query struct {
	Q       string
	Kind    KindFilter
	Mode    Mode
	Limit   int
	Filters Filters
	Cursor  string
}

// Result is one page entry.
type Result struct {
	CallableID   string
	FQN          string
	Kind         brokerapi.Kind
	Name         string
	Description  string // one-line
	Owner        string // server alias, or "skill" for local skills
	Inputs       []string
	Score        float64
	SchemaDigest string
	Collision    bool
}

// Response is the full search(...) return value.
type Response struct {
	Results        []Result
	Cursor         string
	TotalCallables int
	TotalTools     int
	TotalSkills    int
}

const maxLimit = 50

// Search executes q against snap, a point-in-time Registry.Snapshot.
func Search(snap Snapshot, q Query) (Response, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = maxLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset := 0
	if q.Cursor != "" {
		v, o, err := decodeCursor(q.Cursor)
		if err != nil {
			return Response{}, brokerapi.NewError(brokerapi.ErrBadQuery, "malformed cursor")
		}
		if v != snap.Version {
			return Response{}, brokerapi.NewError(brokerapi.ErrBadQuery, "cursor refers to a stale snapshot")
		}
		offset = o
	}

	var matcher func(d brokerapi.Descriptor) (float64, bool)
	switch q.Mode {
	case "", ModeLiteral:
		matcher = literalMatcher(q.Q)
	case ModeRegex:
		m, err := regexMatcher(q.Q)
		if err != nil {
			return Response{}, err
		}
		matcher = m
	case ModeFuzzy:
		matcher = fuzzyMatcher(q.Q)
	default:
		return Response{}, brokerapi.NewError(brokerapi.ErrBadQuery, "unknown search mode: "+string(q.Mode))
	}

	fqnCount := map[string]int{}
	for _, d := range snap.Descriptors {
		localName := d.Name
		fqnCount[localName]++
	}

	var candidates []Result
	for _, d := range snap.Descriptors {
		if !kindMatches(q.Kind, d.Kind) {
			continue
		}
		if !filtersMatch(q.Filters, d) {
			continue
		}
		score, ok := matcher(d)
		if !ok {
			continue
		}

		owner := "skill"
		if d.Source.PeerAlias != "" {
			owner = d.Source.PeerAlias
		}

		candidates = append(candidates, Result{
			CallableID:   d.CallableID,
			FQN:          d.FQN,
			Kind:         d.Kind,
			Name:         d.Name,
			Description:  oneLine(d.Description),
			Owner:        owner,
			Inputs:       paramNames(d),
			Score:        score,
			SchemaDigest: d.SchemaDigest,
			Collision:    fqnCount[d.Name] > 1,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].FQN < candidates[j].FQN
	})

	total, tools, skills := snap.Counts()
	resp := Response{TotalCallables: total, TotalTools: tools, TotalSkills: skills}

	if offset >= len(candidates) {
		resp.Cursor = ""
		return resp, nil
	}

	end := offset + limit
	if end > len(candidates) {
		end = len(candidates)
	}
	resp.Results = candidates[offset:end]
	if end < len(candidates) {
		resp.Cursor = encodeCursor(snap.Version, end)
	}
	return resp, nil
}

func kindMatches(filter KindFilter, kind brokerapi.Kind) bool {
	switch filter {
	case "", KindAny:
		return true
	case KindTools:
		return kind == brokerapi.KindTool
	case KindSkils:
		return kind == brokerapi.KindSkill
	default:
		return false
	}
}

func filtersMatch(f Filters, d brokerapi.Descriptor) bool {
	if len(f.Servers) > 0 {
		if d.Source.PeerAlias == "" || !contains(f.Servers, d.Source.PeerAlias) {
			return false
		}
	}
	if f.RiskTier != "" && string(d.RiskTier) != f.RiskTier {
		return false
	}
	if len(f.Tags) > 0 {
		for _, want := range f.Tags {
			if !contains(d.Tags, want) {
				return false
			}
		}
	}
	if len(f.Requires) > 0 {
		names := map[string]struct{}{}
		for n := range d.InputSchema.Properties {
			names[n] = struct{}{}
		}
		for _, want := range f.Requires {
			if _, ok := names[want]; !ok {
				return false
			}
		}
	}
	return true
}

func contains(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

// literalMatcher does case-insensitive substring scoring: name > tags >
// description.
func literalMatcher(q string) func(brokerapi.Descriptor) (float64, bool) {
	q = strings.ToLower(strings.TrimSpace(q))
	return func(d brokerapi.Descriptor) (float64, bool) {
		if q == "" {
			return 1, true
		}
		score := 0.0
		if strings.Contains(strings.ToLower(d.Name), q) {
			score = 3
		} else {
			for _, tag := range d.Tags {
				if strings.Contains(strings.ToLower(tag), q) {
					score = 2
					break
				}
			}
			if score == 0 && strings.Contains(strings.ToLower(d.Description), q) {
				score = 1
			}
		}
		return score, score > 0
	}
}

// regexMatcher matches an anchored-or-unanchored pattern over FQN and
// description.
func regexMatcher(pattern string) (func(brokerapi.Descriptor) (float64, bool), error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, brokerapi.Wrap(brokerapi.ErrBadQuery, err, "invalid regex")
	}
	return func(d brokerapi.Descriptor) (float64, bool) {
		if re.MatchString(d.FQN) {
			return 2, true
		}
		if re.MatchString(d.Description) {
			return 1, true
		}
		return 0, false
	}, nil
}

// exactMatchScore is the literal-mode name-hit score; fuzzy matches are
// always capped strictly below it, per spec's "never scores above an exact
// match" invariant.
const exactMatchScore = 3
const fuzzyCeiling = exactMatchScore - 0.01
const fuzzyMaxEdits = 2
const fuzzyMinTokenLen = 4

// fuzzyMatcher does token-level edit-distance matching bounded to
// fuzzyMaxEdits for tokens at least fuzzyMinTokenLen long.
func fuzzyMatcher(q string) func(brokerapi.Descriptor) (float64, bool) {
	qTokens := tokenize(q)
	return func(d brokerapi.Descriptor) (float64, bool) {
		best := -1
		dTokens := tokenize(d.Name + " " + strings.Join(d.Tags, " ") + " " + d.Description)
		for _, qt := range qTokens {
			if len(qt) < fuzzyMinTokenLen {
				continue
			}
			for _, dt := range dTokens {
				if len(dt) < fuzzyMinTokenLen {
					continue
				}
				dist := matchr.Levenshtein(qt, dt)
				if dist > fuzzyMaxEdits {
					continue
				}
				if best == -1 || dist < best {
					best = dist
				}
			}
		}
		if best == -1 {
			return 0, false
		}
		// Map edit distance (0..fuzzyMaxEdits) onto a score strictly below
		// an exact literal match, closer matches scoring higher.
		score := fuzzyCeiling - float64(best)*0.5
		return score, true
	}
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

// oneLine collapses a description to a single line, preferring the first
// sentence when one is present early enough to stay informative.
func oneLine(s string) string {
	flat := strings.Join(strings.Fields(s), " ")
	if idx := strings.Index(flat, ". "); idx > 0 && idx < 120 {
		return flat[:idx+1]
	}
	return brokerstrings.TruncateDescription(flat, 160)
}

func paramNames(d brokerapi.Descriptor) []string {
	names := make([]string, 0, len(d.InputSchema.Properties))
	for n := range d.InputSchema.Properties {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func encodeCursor(version uint64, offset int) string {
	raw := fmt.Sprintf("v%d:o%d", version, offset)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (version uint64, offset int, err error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, 0, err
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 || !strings.HasPrefix(parts[0], "v") || !strings.HasPrefix(parts[1], "o") {
		return 0, 0, fmt.Errorf("malformed cursor")
	}
	v, err := strconv.ParseUint(parts[0][1:], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	o, err := strconv.Atoi(parts[1][1:])
	if err != nil {
		return 0, 0, err
	}
	return v, o, nil
}
