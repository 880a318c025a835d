package imapmail

import "fmt"

// TrashMailbox is where soft deletes land.
const TrashMailbox = "Trash"

// maxDetails caps how many per-item failure messages a BulkResult retains.
// Counts always stay accurate; only the detail list is bounded.
const maxDetails = 10

// BulkResult summarizes one bulk mutation. Per-item failures are absorbed
// into the counts and never abort the remaining items.
type BulkResult struct {
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Total     int      `json:"total"`
	Details   []string `json:"details,omitempty"`
}

// Merge folds other into r, preserving the detail cap.
func (r *BulkResult) Merge(other BulkResult) {
	r.Succeeded += other.Succeeded
	r.Failed += other.Failed
	r.Total += other.Total
	for _, d := range other.Details {
		if len(r.Details) >= maxDetails {
			break
		}
		r.Details = append(r.Details, d)
	}
}

func (r *BulkResult) detail(format string, args ...any) {
	if len(r.Details) >= maxDetails {
		return
	}
	r.Details = append(r.Details, fmt.Sprintf(format, args...))
}

// MoveMany moves the identified messages into target: copy, flag the
// originals deleted, then one expunge for the whole call. Each chunk is
// attempted as a unit first; a failed chunk degrades to per-id moves so one
// missing message only costs itself. The expunge runs once, and only if at
// least one message was staged.
func MoveMany(sess Session, ids []string, target string, chunkSize int) BulkResult {
	result := BulkResult{Total: len(ids)}
	if len(ids) == 0 {
		return result
	}
	for _, chunk := range Chunks(ids, chunkSize) {
		if err := stageMove(sess, chunk, target); err == nil {
			result.Succeeded += len(chunk)
			continue
		}
		for _, id := range chunk {
			if err := stageMove(sess, []string{id}, target); err != nil {
				result.Failed++
				result.detail("move %s to %s: %v", id, target, err)
				continue
			}
			result.Succeeded++
		}
	}
	if result.Succeeded > 0 {
		if err := sess.Expunge(); err != nil {
			result.detail("expunge after move to %s: %v", target, err)
		}
	}
	return result
}

// stageMove copies ids to target and flags the originals deleted, without
// expunging.
func stageMove(sess Session, ids []string, target string) error {
	if err := sess.Copy(ids, target); err != nil {
		return err
	}
	return sess.Store(ids, true, FlagDeleted)
}

// MarkMany adds (add=true) or removes a flag on the identified messages,
// chunk by chunk with per-id fallback. Flag stores are idempotent at the
// protocol level, so re-marking an already marked message counts as success.
func MarkMany(sess Session, ids []string, flag string, add bool, chunkSize int) BulkResult {
	result := BulkResult{Total: len(ids)}
	for _, chunk := range Chunks(ids, chunkSize) {
		if err := sess.Store(chunk, add, flag); err == nil {
			result.Succeeded += len(chunk)
			continue
		}
		for _, id := range chunk {
			if err := sess.Store([]string{id}, add, flag); err != nil {
				result.Failed++
				result.detail("store %s %s: %v", id, flag, err)
				continue
			}
			result.Succeeded++
		}
	}
	return result
}

// DeleteMany removes the identified messages. The soft path (permanent=false)
// is exactly a MoveMany into Trash. The permanent path flags the messages
// deleted and expunges once if anything was flagged.
func DeleteMany(sess Session, ids []string, permanent bool, chunkSize int) BulkResult {
	if !permanent {
		return MoveMany(sess, ids, TrashMailbox, chunkSize)
	}
	result := MarkMany(sess, ids, FlagDeleted, true, chunkSize)
	if result.Succeeded > 0 {
		if err := sess.Expunge(); err != nil {
			result.detail("expunge: %v", err)
		}
	}
	return result
}
