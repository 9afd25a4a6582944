package conversation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// loopDetector catches a tool-use round repeatedly calling the same tool
// with the same arguments — a misbehaving round rather than progress.
// Results are recorded but play no part in detection. Grounded on the teacher's toolLoopState
// (internal/agent/loop.go), reused here to bound the Assistant's R=5-round
// budget instead of a coding-agent's much longer iteration budget.
type loopDetector struct {
	counts  map[string]int
	results map[string]string
}

func newLoopDetector() *loopDetector {
	return &loopDetector{counts: make(map[string]int), results: make(map[string]string)}
}

// record hashes a tool name + its arguments (order-independent) and returns
// the hash for use by recordResult/detect.
func (d *loopDetector) record(name string, args map[string]interface{}) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := make(map[string]interface{}, len(args))
	for _, k := range keys {
		ordered[k] = args[k]
	}
	raw, _ := json.Marshal(ordered)
	sum := sha256.Sum256(append([]byte(name+":"), raw...))
	hash := hex.EncodeToString(sum[:])
	d.counts[hash]++
	return hash
}

func (d *loopDetector) recordResult(hash, result string) {
	d.results[hash] = result
}

// detect reports whether this exact call has repeated enough to warrant
// stopping the round. Two or more identical calls within a 5-round budget
// already means no new information is being gathered.
func (d *loopDetector) detect(hash string) bool {
	return d.counts[hash] >= 2
}
