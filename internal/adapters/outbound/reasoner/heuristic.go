package reasoner

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/abdidvp/apiweave/internal/domain"
	"github.com/fatih/camelcase"
)

// Scoring weights for the offline reasoner.
const (
	fieldNameWeight   = 0.7
	fieldTypeWeight   = 0.3
	entityNameWeight  = 0.35
	entityFieldWeight = 0.65

	// minFieldScore is the lowest field score worth proposing.
	minFieldScore = 0.6
	// containmentScore rates a name whose tokens are a subset of the other's.
	containmentScore = 0.85
	// synonymScore rates names from the same synonym group.
	synonymScore = 0.8
)

// synonymGroups are interchangeable domain nouns.
var synonymGroups = [][]string{
	{"customer", "client", "user", "account", "contact", "member"},
	{"order", "purchase", "sale"},
	{"product", "item", "article", "sku"},
	{"invoice", "bill"},
	{"address", "location"},
	{"phone", "telephone", "mobile"},
	{"created", "inserted"},
	{"updated", "modified", "changed"},
}

var synonymIndex = func() map[string]int {
	idx := make(map[string]int)
	for i, g := range synonymGroups {
		for _, w := range g {
			idx[w] = i
		}
	}
	return idx
}()

var numericTypes = map[string]bool{
	"integer": true, "int": true, "int32": true, "int64": true,
	"number": true, "float": true, "double": true, "decimal": true,
}

// Heuristic is a deterministic offline reasoner. It scores identifier
// similarity and type compatibility instead of calling a model, and replies in
// the same JSON shape a model would.
type Heuristic struct{}

// NewHeuristic creates a Heuristic reasoner.
func NewHeuristic() *Heuristic { return &Heuristic{} }

type heuristicField struct {
	SourceField    string  `json:"sourceField"`
	TargetField    string  `json:"targetField"`
	Confidence     float64 `json:"confidence"`
	Transformation string  `json:"transformation,omitempty"`
}

type heuristicReply struct {
	SourceEntity  string           `json:"sourceEntity"`
	TargetEntity  string           `json:"targetEntity"`
	Confidence    float64          `json:"confidence"`
	Reasoning     string           `json:"reasoning"`
	FieldMappings []heuristicField `json:"fieldMappings"`
}

type scoredPair struct {
	src, dst domain.Field
	score    float64
}

// Propose scores req.Source against req.Target. The prompt is ignored.
func (h *Heuristic) Propose(ctx context.Context, req domain.PairRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fields := matchFields(req.Source.Fields, req.Target.Fields)
	var total float64
	for _, f := range fields {
		total += f.Confidence
	}
	coverage := 0.0
	if n := max(len(req.Source.Fields), len(req.Target.Fields)); n > 0 {
		coverage = total / float64(n)
	}
	nameScore := NameSimilarity(req.Source.Name, req.Target.Name)

	reply := heuristicReply{
		SourceEntity:  req.Source.Name,
		TargetEntity:  req.Target.Name,
		Confidence:    round2(entityNameWeight*nameScore + entityFieldWeight*coverage),
		Reasoning:     fmt.Sprintf("name similarity %.2f, %d of %d source fields matched", nameScore, len(fields), len(req.Source.Fields)),
		FieldMappings: fields,
	}
	data, err := json.Marshal(reply)
	if err != nil {
		return "", fmt.Errorf("encoding heuristic reply: %w", err)
	}
	return string(data), nil
}

// matchFields greedily pairs fields by descending score. Each field is used
// at most once on either side.
func matchFields(src, dst []domain.Field) []heuristicField {
	var pairs []scoredPair
	for _, s := range src {
		for _, d := range dst {
			score := fieldNameWeight*NameSimilarity(s.Name, d.Name) + fieldTypeWeight*typeCompatibility(s.Type, d.Type)
			if score >= minFieldScore {
				pairs = append(pairs, scoredPair{src: s, dst: d, score: score})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		if pairs[i].src.Name != pairs[j].src.Name {
			return pairs[i].src.Name < pairs[j].src.Name
		}
		return pairs[i].dst.Name < pairs[j].dst.Name
	})

	usedSrc := make(map[string]bool)
	usedDst := make(map[string]bool)
	out := make([]heuristicField, 0, len(pairs))
	for _, p := range pairs {
		if usedSrc[p.src.Name] || usedDst[p.dst.Name] {
			continue
		}
		usedSrc[p.src.Name] = true
		usedDst[p.dst.Name] = true
		out = append(out, heuristicField{
			SourceField:    p.src.Name,
			TargetField:    p.dst.Name,
			Confidence:     round2(p.score),
			Transformation: transformation(p.src, p.dst),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceField < out[j].SourceField })
	return out
}

// NameSimilarity scores two identifiers in [0,1]. It takes the best of
// normalized edit distance, token containment and synonym matches.
func NameSimilarity(a, b string) float64 {
	ta, tb := Tokenize(a), Tokenize(b)
	ja, jb := strings.Join(ta, ""), strings.Join(tb, "")
	if ja == jb {
		return 1
	}

	best := levenshteinSimilarity(ja, jb)
	if len(ta) > 0 && len(tb) > 0 && (containsAll(ta, tb) || containsAll(tb, ta)) {
		best = math.Max(best, containmentScore)
	}
	if synonyms(ta, tb) {
		best = math.Max(best, synonymScore)
	}
	return best
}

// Tokenize splits an identifier on case changes and separators and
// lower-cases the tokens.
func Tokenize(s string) []string {
	var out []string
	for _, part := range camelcase.Split(s) {
		part = strings.TrimFunc(part, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}

func containsAll(small, big []string) bool {
	set := make(map[string]bool, len(big))
	for _, t := range big {
		set[t] = true
	}
	for _, t := range small {
		if !set[t] {
			return false
		}
	}
	return true
}

// synonyms reports whether both names read the same once every token is
// replaced by its synonym group.
func synonyms(a, b []string) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] == b[i] {
			continue
		}
		ga, okA := synonymIndex[a[i]]
		gb, okB := synonymIndex[b[i]]
		if !okA || !okB || ga != gb {
			return false
		}
	}
	return true
}

func typeCompatibility(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	switch {
	case a == b:
		return 1
	case numericTypes[a] && numericTypes[b]:
		return 0.8
	case a == "" || b == "" || a == "unknown" || b == "unknown" || a == "string" || b == "string":
		return 0.5
	default:
		return 0.2
	}
}

func transformation(src, dst domain.Field) string {
	st, dt := strings.ToLower(src.Type), strings.ToLower(dst.Type)
	switch {
	case st != dt:
		return fmt.Sprintf("convert %s to %s", st, dt)
	case src.Format != "" && dst.Format != "" && src.Format != dst.Format:
		return fmt.Sprintf("reformat %s as %s", src.Format, dst.Format)
	default:
		return ""
	}
}

func levenshteinSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	return 1 - float64(levenshtein(ra, rb))/float64(max(len(ra), len(rb)))
}

// levenshtein is the two-row edit distance.
func levenshtein(a, b []rune) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)
	for i := range prev {
		prev[i] = i
	}
	for j := 1; j <= len(b); j++ {
		curr[0] = j
		for i := 1; i <= len(a); i++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[i] = min(prev[i]+1, curr[i-1]+1, prev[i-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(a)]
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
