package imapmail

import "fmt"

// DefaultChunkSize bounds how many ids a single protocol command addresses.
const DefaultChunkSize = 50

// FetchResult carries per-identifier hydration outcomes. Every requested id
// lands in exactly one of the two maps: Records on success, Missing with the
// reason otherwise. len(Records)+len(Missing) == number of distinct requested
// ids.
type FetchResult struct {
	Records map[string]MessageRecord
	Missing map[string]error
}

// FetchMany hydrates the identified messages with envelope and plain-text
// body, fetching in chunks of chunkSize. A failed or incomplete chunk
// degrades to per-id fetches so one bad message cannot sink its chunk.
func FetchMany(sess Session, ids []string, chunkSize int) FetchResult {
	return fetchMany(sess, ids, chunkSize, false)
}

// FetchManyFull is FetchMany with full hydration: HTML body, unsubscribe
// headers, and attachment presence are extracted as well.
func FetchManyFull(sess Session, ids []string, chunkSize int) FetchResult {
	return fetchMany(sess, ids, chunkSize, true)
}

func fetchMany(sess Session, ids []string, chunkSize int, full bool) FetchResult {
	result := FetchResult{
		Records: make(map[string]MessageRecord, len(ids)),
		Missing: make(map[string]error),
	}
	for _, chunk := range Chunks(ids, chunkSize) {
		raws, err := sess.Fetch(chunk)
		if err != nil {
			fetchEach(sess, chunk, full, &result)
			continue
		}
		seen := make(map[string]struct{}, len(raws))
		for _, rm := range raws {
			seen[rm.ID] = struct{}{}
			rec, perr := parseRecord(rm.ID, rm.Raw, full)
			if perr != nil {
				result.Missing[rm.ID] = perr
				continue
			}
			result.Records[rm.ID] = rec
		}
		// Ids the chunk response skipped degrade to per-id fetches too.
		var leftover []string
		for _, id := range chunk {
			if _, ok := seen[id]; !ok {
				leftover = append(leftover, id)
			}
		}
		if len(leftover) > 0 {
			fetchEach(sess, leftover, full, &result)
		}
	}
	return result
}

// fetchEach retries ids one at a time, recording a reason for every id that
// still cannot be hydrated.
func fetchEach(sess Session, ids []string, full bool, result *FetchResult) {
	for _, id := range ids {
		raws, err := sess.Fetch([]string{id})
		if err != nil {
			result.Missing[id] = err
			continue
		}
		if len(raws) == 0 {
			result.Missing[id] = fmt.Errorf("imapmail: message %s not returned by server", id)
			continue
		}
		rec, perr := parseRecord(id, raws[0].Raw, full)
		if perr != nil {
			result.Missing[id] = perr
			continue
		}
		rec.ID = id
		result.Records[id] = rec
	}
}

// Chunks splits ids into slices of at most size elements, preserving order.
// A non-positive size falls back to DefaultChunkSize.
func Chunks(ids []string, size int) [][]string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
