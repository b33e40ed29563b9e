package detector

import (
	"strings"
	"unicode"

	"github.com/fyrsmithlabs/roadmapd/internal/roadmap"
)

// Recommendation is the detector's verdict for a transcript.
type Recommendation string

const (
	// ReadyToComplete means high confidence: the caller should issue a
	// completion command immediately.
	ReadyToComplete Recommendation = "ready_to_complete"

	// SuggestComplete means medium confidence: the caller should prompt the
	// user before completing.
	SuggestComplete Recommendation = "suggest_complete"

	// None means no completion signal was found.
	None Recommendation = "none"
)

// Message is one transcript entry.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Config tunes the heuristics.
type Config struct {
	// OverlapThreshold is the fraction of substep keywords that must appear
	// in the transcript to suggest completion.
	OverlapThreshold float64
}

// DefaultConfig returns the tuning used in production.
func DefaultConfig() Config {
	return Config{OverlapThreshold: 0.5}
}

// donePhrases are explicit user statements of completion. Matched
// case-insensitively as substrings of user messages.
var donePhrases = []string{
	"i'm done",
	"im done",
	"i am done",
	"i finished",
	"i've finished",
	"finished this step",
	"done with this step",
	"completed this step",
	"that's working now",
	"it works now",
	"all set",
	"mark it complete",
	"mark this done",
}

// stopwords are excluded from keyword overlap scoring.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "to": {}, "of": {},
	"in": {}, "on": {}, "for": {}, "with": {}, "your": {}, "you": {},
	"is": {}, "are": {}, "be": {}, "it": {}, "this": {}, "that": {},
	"up": {}, "set": {}, "into": {}, "by": {}, "at": {}, "as": {},
}

// Detector scores transcripts against a substep's acceptance criteria.
type Detector struct {
	config Config
}

// New creates a detector. Zero-value thresholds fall back to defaults.
func New(cfg Config) *Detector {
	if cfg.OverlapThreshold <= 0 || cfg.OverlapThreshold > 1 {
		cfg.OverlapThreshold = DefaultConfig().OverlapThreshold
	}
	return &Detector{config: cfg}
}

// Detect returns a recommendation for the given transcript and substep.
func (d *Detector) Detect(transcript []Message, substep roadmap.Substep) Recommendation {
	if len(transcript) == 0 {
		return None
	}

	// Explicit "I'm done" style statements from the user win outright.
	for _, msg := range transcript {
		if msg.Role != "user" {
			continue
		}
		content := strings.ToLower(msg.Content)
		for _, phrase := range donePhrases {
			if strings.Contains(content, phrase) {
				return ReadyToComplete
			}
		}
	}

	keywords := substepKeywords(substep)
	if len(keywords) == 0 {
		return None
	}

	seen := transcriptTokens(transcript)
	matched := 0
	for kw := range keywords {
		if _, ok := seen[kw]; ok {
			matched++
		}
	}

	if float64(matched)/float64(len(keywords)) >= d.config.OverlapThreshold {
		return SuggestComplete
	}
	return None
}

// substepKeywords tokenizes the substep's title, description, and tools.
func substepKeywords(s roadmap.Substep) map[string]struct{} {
	out := make(map[string]struct{})
	addTokens(out, s.Title)
	addTokens(out, s.Description)
	for _, tool := range s.ToolsNeeded {
		addTokens(out, tool)
	}
	return out
}

func transcriptTokens(transcript []Message) map[string]struct{} {
	out := make(map[string]struct{})
	for _, msg := range transcript {
		addTokens(out, msg.Content)
	}
	return out
}

func addTokens(dst map[string]struct{}, text string) {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, tok := range tokens {
		if len(tok) < 3 {
			continue
		}
		if _, ok := stopwords[tok]; ok {
			continue
		}
		dst[tok] = struct{}{}
	}
}
