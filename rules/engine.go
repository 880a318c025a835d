package rules

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mailsweep/mailsweep/imapmail"
)

// Engine applies enabled rules to a mailbox in bulk. It hydrates candidate
// messages chunk by chunk, matches every enabled rule against every message,
// and reduces the matches into one bulk mutation per action group.
type Engine struct {
	store     Store
	chunkSize int
	logger    *slog.Logger
	now       func() time.Time
}

// NewEngine returns an engine over store. A non-positive chunkSize falls
// back to imapmail.DefaultChunkSize; a nil logger discards.
func NewEngine(store Store, chunkSize int, logger *slog.Logger) *Engine {
	if chunkSize <= 0 {
		chunkSize = imapmail.DefaultChunkSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{store: store, chunkSize: chunkSize, logger: logger, now: time.Now}
}

// ApplyResult aggregates one apply run across all chunks.
type ApplyResult struct {
	// Processed counts hydrated messages; Unfetched counts candidates that
	// could not be hydrated and were skipped.
	Processed int `json:"processed"`
	Unfetched int `json:"unfetched"`
	// Matched counts messages that satisfied at least one rule.
	Matched int `json:"matched"`

	Moves           map[string]imapmail.BulkResult `json:"moves,omitempty"`
	MarkedRead      imapmail.BulkResult            `json:"marked_read"`
	MarkedImportant imapmail.BulkResult            `json:"marked_important"`
	Deleted         imapmail.BulkResult            `json:"deleted"`
}

func newApplyResult() ApplyResult {
	return ApplyResult{Moves: map[string]imapmail.BulkResult{}}
}

// Merge folds other into r.
func (r *ApplyResult) Merge(other ApplyResult) {
	r.Processed += other.Processed
	r.Unfetched += other.Unfetched
	r.Matched += other.Matched
	if r.Moves == nil {
		r.Moves = map[string]imapmail.BulkResult{}
	}
	for folder, br := range other.Moves {
		merged := r.Moves[folder]
		merged.Merge(br)
		r.Moves[folder] = merged
	}
	r.MarkedRead.Merge(other.MarkedRead)
	r.MarkedImportant.Merge(other.MarkedImportant)
	r.Deleted.Merge(other.Deleted)
}

// Apply runs all enabled rules over the most recent limit candidates of the
// selected mailbox as a single chunk. limit <= 0 means all candidates.
func (e *Engine) Apply(sess imapmail.Session, limit int) (ApplyResult, error) {
	return e.apply(sess, limit, 0)
}

// ApplyChunked is Apply with the candidate list split into chunks of
// chunkSize; rule statistics persist after every chunk, so a failure mid-run
// loses at most one chunk of counter updates.
func (e *Engine) ApplyChunked(sess imapmail.Session, limit, chunkSize int) (ApplyResult, error) {
	if chunkSize <= 0 {
		chunkSize = e.chunkSize
	}
	return e.apply(sess, limit, chunkSize)
}

func (e *Engine) apply(sess imapmail.Session, limit, chunkSize int) (ApplyResult, error) {
	result := newApplyResult()
	allRules, err := e.store.Load()
	if err != nil {
		return result, err
	}
	if !anyEnabled(allRules) {
		return result, nil
	}

	ids, err := sess.Search(imapmail.SearchQuery{})
	if err != nil {
		return result, err
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[len(ids)-limit:]
	}
	if len(ids) == 0 {
		return result, nil
	}

	chunks := [][]string{ids}
	if chunkSize > 0 {
		chunks = imapmail.Chunks(ids, chunkSize)
	}
	for _, chunk := range chunks {
		chunkResult := e.applyToChunk(sess, chunk, allRules)
		result.Merge(chunkResult)
		if err := e.store.Save(allRules); err != nil {
			e.logger.Warn("persisting rule statistics failed", "error", err)
		}
		e.logger.Debug("applied rules to chunk",
			"candidates", len(chunk),
			"processed", chunkResult.Processed,
			"matched", chunkResult.Matched)
	}
	return result, nil
}

// applyToChunk hydrates one chunk, accumulates matches into an action plan,
// and dispatches one bulk call per group. Non-destructive groups (flag
// stores) run before moves and deletes so a message subject to both still
// gets its flags.
func (e *Engine) applyToChunk(sess imapmail.Session, ids []string, allRules []Rule) ApplyResult {
	result := newApplyResult()
	fetched := imapmail.FetchManyFull(sess, ids, e.chunkSize)
	result.Unfetched = len(fetched.Missing)

	plan := newActionPlan()
	appliedAt := e.now().UTC()
	for _, id := range ids {
		msg, ok := fetched.Records[id]
		if !ok {
			continue
		}
		result.Processed++
		matched := false
		for i := range allRules {
			if !allRules[i].Enabled {
				continue
			}
			if !e.Matches(msg, allRules[i]) {
				continue
			}
			matched = true
			for _, act := range allRules[i].Actions {
				plan.add(id, act)
			}
			allRules[i].EmailsProcessed++
			allRules[i].LastApplied = appliedAt
		}
		if matched {
			result.Matched++
		}
	}

	if ids := plan.markRead.ids; len(ids) > 0 {
		result.MarkedRead = imapmail.MarkMany(sess, ids, imapmail.FlagSeen, true, e.chunkSize)
	}
	if ids := plan.markImportant.ids; len(ids) > 0 {
		result.MarkedImportant = imapmail.MarkMany(sess, ids, imapmail.FlagFlagged, true, e.chunkSize)
	}
	for _, folder := range plan.moveOrder {
		result.Moves[folder] = imapmail.MoveMany(sess, plan.moves[folder].ids, folder, e.chunkSize)
	}
	if ids := plan.trash.ids; len(ids) > 0 {
		result.Deleted = imapmail.DeleteMany(sess, ids, false, e.chunkSize)
	}
	return result
}

// Matches reports whether msg satisfies every condition of rule.
func (e *Engine) Matches(msg imapmail.MessageRecord, rule Rule) bool {
	for _, cond := range rule.Conditions {
		if !e.matchCondition(msg, cond) {
			return false
		}
	}
	return true
}

func (e *Engine) matchCondition(msg imapmail.MessageRecord, cond Condition) bool {
	switch cond.Kind {
	case CondFromContains:
		return containsFold(msg.From, cond.Value)
	case CondToContains:
		return containsFold(msg.To, cond.Value)
	case CondSubjectContains:
		return containsFold(msg.Subject, cond.Value)
	case CondBodyContains:
		return containsFold(msg.Body, cond.Value)
	case CondHasAttachments:
		want := true
		if v := strings.TrimSpace(cond.Value); v != "" {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return false
			}
			want = parsed
		}
		return msg.HasAttachments == want
	case CondOlderThanDays:
		sent, ok := imapmail.ParseDate(msg.Date)
		if !ok {
			// An unparseable date never triggers an action.
			return false
		}
		days, _ := strconv.Atoi(strings.TrimSpace(cond.Value))
		return sent.Before(e.now().AddDate(0, 0, -days))
	case CondNewerThanDays:
		sent, ok := imapmail.ParseDate(msg.Date)
		if !ok {
			return false
		}
		days, _ := strconv.Atoi(strings.TrimSpace(cond.Value))
		return !sent.Before(e.now().AddDate(0, 0, -days))
	default:
		return false
	}
}

// actionPlan accumulates matched ids per action group. Accumulation is
// idempotent: an id enters each group at most once no matter how many rules
// put it there.
type actionPlan struct {
	moveOrder     []string
	moves         map[string]*idGroup
	markRead      idGroup
	markImportant idGroup
	trash         idGroup
}

func newActionPlan() *actionPlan {
	return &actionPlan{moves: map[string]*idGroup{}}
}

func (p *actionPlan) add(id string, act Action) {
	switch act.Kind {
	case ActionMoveToFolder:
		folder := strings.TrimSpace(act.Value)
		if folder == "" {
			return
		}
		group, ok := p.moves[folder]
		if !ok {
			group = &idGroup{}
			p.moves[folder] = group
			p.moveOrder = append(p.moveOrder, folder)
		}
		group.add(id)
	case ActionMarkAsRead:
		p.markRead.add(id)
	case ActionMarkAsImportant:
		p.markImportant.add(id)
	case ActionDelete:
		p.trash.add(id)
	}
}

type idGroup struct {
	ids  []string
	seen map[string]struct{}
}

func (g *idGroup) add(id string) {
	if g.seen == nil {
		g.seen = map[string]struct{}{}
	}
	if _, ok := g.seen[id]; ok {
		return
	}
	g.seen[id] = struct{}{}
	g.ids = append(g.ids, id)
}

func anyEnabled(rules []Rule) bool {
	for _, rule := range rules {
		if rule.Enabled {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
