package tracking

import (
	"sort"
	"sync"
)

// Registry holds the active checks keyed by message id.
// It lives in memory only: a restart loses every check in flight
type Registry struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewRegistry() *Registry {
	return &Registry{records: map[string]Record{}}
}

func (r *Registry) Insert(record Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.MessageID] = record.clone()
}

// Remove the record if present, reporting whether anything was deleted
func (r *Registry) Remove(messageID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[messageID]; !ok {
		return false
	}
	delete(r.records, messageID)
	return true
}

// Clear removes every record and returns how many there were
func (r *Registry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := len(r.records)
	r.records = map[string]Record{}
	return count
}

func (r *Registry) Get(messageID string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[messageID]
	if !ok {
		return Record{}, false
	}
	return record.clone(), true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Snapshot returns a point-in-time copy of every record.
// Callers may keep and iterate it while the registry keeps changing
func (r *Registry) Snapshot() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make([]Record, 0, len(r.records))
	for _, record := range r.records {
		snapshot = append(snapshot, record.clone())
	}
	return snapshot
}

// ByGuild returns the records of one guild, the ones closest to expiring first
func (r *Registry) ByGuild(guildID string) []Record {
	records := []Record{}
	for _, record := range r.Snapshot() {
		if record.GuildID == guildID {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].EndTime.Equal(records[j].EndTime) {
			return records[i].MessageID < records[j].MessageID
		}
		return records[i].EndTime.Before(records[j].EndTime)
	})
	return records
}
