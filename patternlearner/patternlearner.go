// Package patternlearner implements the PatternLearner described in
// spec.md §4.11: an LRU-bounded catalog of patterns discovered from
// orchestrator synthesis results, with kind-specific trigger rules.
//
// Grounded on original_source/lib/orchestration/pattern_learner.py
// (header and responsibilities; the body was not retained in the
// retrieval pack, so the trigger rules below follow spec.md directly).
// Pattern ids use idgen.ContentHash8 directly rather than the full
// idgen.Generator sequence scheme, since a pattern's id must reproduce
// across independently-running processes from its signature alone.
package patternlearner

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/synapse-systems/corpuscallosum/ccerrors"
	"github.com/synapse-systems/corpuscallosum/idgen"
)

// Kind enumerates the pattern categories PatternLearner can catalog.
type Kind string

const (
	KindSequence     Kind = "sequence"
	KindComposition  Kind = "composition"
	KindOptimization Kind = "optimization"
	KindError        Kind = "error"
	KindStructural   Kind = "structural"
)

// DefaultMaxPatterns bounds the catalog via LRU eviction (spec.md §4.11).
const DefaultMaxPatterns = 1000

// BatchOpportunityMinWrites is the minimum number of ungrouped
// create_file/write_file actions in a single plan that triggers an
// Optimization pattern suggesting batching.
const BatchOpportunityMinWrites = 3

// Pattern is a cataloged, deduplicated discovery.
type Pattern struct {
	ID              string
	Kind            Kind
	Description     string
	OccurrenceCount int
	Signature       string
}

// ActionRef is the minimal shape of a planned action PatternLearner needs
// to evaluate trigger rules; ActionType carries planner.PlannedAction's
// ActionType.
type ActionRef struct {
	ActionType string
	Error      string
}

// PatternMap is an LRU-bounded, collision-resistant pattern catalog.
// Patterns are identified by a deterministic id ({kind}_{hash8}) derived
// solely from the pattern's dedup signature, so two independent
// PatternMaps (different processes, different prior histories) assign
// the same id to the same action-sequence signature; a second
// occurrence of the same signature increments OccurrenceCount and moves
// the entry to the front instead of reinserting it.
type PatternMap struct {
	maxPatterns int

	// writeLimiter paces Record against bursty AnalyzeActions callers
	// (e.g. a synthesis replay flooding the catalog with repeated
	// signatures); nil disables throttling.
	writeLimiter *rate.Limiter

	mu    sync.Mutex
	order *list.List // front = most recently touched
	byID  map[string]*list.Element
	bySig map[string]string // signature -> id, for dedup lookup
}

// New constructs an empty PatternMap bounded at maxPatterns entries (<=0
// uses DefaultMaxPatterns), with write throttling disabled.
func New(maxPatterns int) *PatternMap {
	return NewWithLimiter(maxPatterns, nil)
}

// NewWithLimiter constructs a PatternMap whose Record calls wait on
// limiter before mutating the catalog, bounding the rate at which a
// single process can grow or reinforce patterns. Grounded on the
// AIMD-style token-bucket pacing in
// features/model/middleware.AdaptiveRateLimiter, trimmed to a plain
// rate.Limiter since pattern writes need pacing, not provider-driven
// backoff/probe adjustment.
func NewWithLimiter(maxPatterns int, limiter *rate.Limiter) *PatternMap {
	if maxPatterns <= 0 {
		maxPatterns = DefaultMaxPatterns
	}
	return &PatternMap{
		maxPatterns:  maxPatterns,
		writeLimiter: limiter,
		order:        list.New(),
		byID:         make(map[string]*list.Element),
		bySig:        make(map[string]string),
	}
}

// Record catalogs or reinforces a pattern with the given kind,
// description, and dedup signature (typically a hash of the triggering
// action sequence). Returns the pattern's id.
func (m *PatternMap) Record(kind Kind, description, signature string) (string, error) {
	if m.writeLimiter != nil {
		if err := m.writeLimiter.Wait(context.Background()); err != nil {
			return "", fmt.Errorf("patternlearner: write throttle: %w", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.bySig[signature]; ok {
		el, ok := m.byID[id]
		if !ok {
			return "", fmt.Errorf("patternlearner: %w: signature %q indexed without entry", ccerrors.ErrPatternCollision, signature)
		}
		p := el.Value.(*Pattern)
		p.OccurrenceCount++
		m.order.MoveToFront(el)
		return p.ID, nil
	}

	id := fmt.Sprintf("%s_%s", kind, idgen.ContentHash8([]byte(signature)))
	if _, exists := m.byID[id]; exists {
		return "", fmt.Errorf("patternlearner: %w: id %q already assigned", ccerrors.ErrPatternCollision, id)
	}

	p := &Pattern{ID: id, Kind: kind, Description: description, OccurrenceCount: 1, Signature: signature}
	el := m.order.PushFront(p)
	m.byID[id] = el
	m.bySig[signature] = id

	m.evictIfOverLocked()
	return id, nil
}

func (m *PatternMap) evictIfOverLocked() {
	for m.order.Len() > m.maxPatterns {
		back := m.order.Back()
		if back == nil {
			return
		}
		p := back.Value.(*Pattern)
		m.order.Remove(back)
		delete(m.byID, p.ID)
		delete(m.bySig, p.Signature)
	}
}

// Get returns the pattern with the given id, if cataloged.
func (m *PatternMap) Get(id string) (Pattern, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.byID[id]
	if !ok {
		return Pattern{}, false
	}
	return *el.Value.(*Pattern), true
}

// Len returns the number of cataloged patterns.
func (m *PatternMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// AnalyzeActions evaluates a completed plan's actions against the
// Sequence, Composition, Optimization, Error, and Structural trigger
// rules, recording any patterns they surface. Returns the ids of patterns
// touched (new or reinforced).
func (m *PatternMap) AnalyzeActions(actions []ActionRef) ([]string, error) {
	var ids []string

	if len(actions) >= 2 {
		sig := sequenceSignature(actions)
		id, err := m.Record(KindSequence, fmt.Sprintf("action sequence of length %d", len(actions)), sig)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}

	sawDirCreate := false
	for _, a := range actions {
		if a.ActionType == "create_directory" {
			sawDirCreate = true
			continue
		}
		if a.ActionType == "write_file" && sawDirCreate {
			id, err := m.Record(KindComposition, "directory created before file write", "composition:create_directory_then_write_file")
			if err != nil {
				return ids, err
			}
			ids = append(ids, id)
			break
		}
	}

	writeCount := 0
	hasBatch := false
	dirCount := 0
	for _, a := range actions {
		switch a.ActionType {
		case "write_file", "create_file":
			writeCount++
		case "batch_create_files":
			hasBatch = true
		case "create_directory":
			dirCount++
		}
	}
	if writeCount >= BatchOpportunityMinWrites && !hasBatch {
		id, err := m.Record(KindOptimization, fmt.Sprintf("%d ungrouped write operations could be batched", writeCount), "optimization:batch_opportunity")
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	if dirCount >= 2 {
		id, err := m.Record(KindStructural, fmt.Sprintf("%d directories created in one plan", dirCount), "structural:multi_directory")
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}

	for _, a := range actions {
		if a.Error == "" {
			continue
		}
		token := firstToken(a.Error)
		id, err := m.Record(KindError, fmt.Sprintf("error class %q observed", token), "error:"+token)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func sequenceSignature(actions []ActionRef) string {
	var sb strings.Builder
	for _, a := range actions {
		sb.WriteString(a.ActionType)
		sb.WriteByte('|')
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return "sequence:" + hex.EncodeToString(sum[:])
}

func firstToken(msg string) string {
	fields := strings.Fields(msg)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.Trim(fields[0], ":;,")
}
