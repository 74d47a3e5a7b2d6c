package storage

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/vmihailenco/msgpack/v5"

	"natvis/internal/natvis"
)

// EntryRecord is the stored form of a natvis.TypeEntry. Expressions are
// kept in their rendered, fully substituted form.
type EntryRecord struct {
	Names        []string     `msgpack:"names"`
	Priority     int          `msgpack:"priority"`
	Inheritable  bool         `msgpack:"inheritable"`
	IncludeView  string       `msgpack:"include_view,omitempty"`
	ExcludeView  string       `msgpack:"exclude_view,omitempty"`
	Summaries    []string     `msgpack:"summaries,omitempty"`
	StringViews  []string     `msgpack:"string_views,omitempty"`
	SmartPointer string       `msgpack:"smart_pointer,omitempty"`
	Items        []ItemRecord `msgpack:"items,omitempty"`
	Intrinsics   []string     `msgpack:"intrinsics,omitempty"`
}

// ItemRecord summarizes one item provider.
type ItemRecord struct {
	Kind      string `msgpack:"kind"`
	Name      string `msgpack:"name,omitempty"`
	Condition string `msgpack:"condition,omitempty"`
}

// NewEntryRecord flattens a parsed entry.
func NewEntryRecord(e *natvis.TypeEntry) EntryRecord {
	r := EntryRecord{
		Priority:    int(e.Priority),
		Inheritable: e.Inheritable,
		IncludeView: e.IncludeView,
		ExcludeView: e.ExcludeView,
	}
	for _, n := range e.Names {
		r.Names = append(r.Names, n.Raw)
	}
	for _, s := range e.Summaries {
		r.Summaries = append(r.Summaries, s.Value.String())
	}
	for _, v := range e.StringViews {
		r.StringViews = append(r.StringViews, v.Value.String())
	}
	if e.SmartPointer != nil {
		r.SmartPointer = e.SmartPointer.Value.String()
	}
	if e.Expand != nil {
		for _, p := range e.Expand.Items {
			r.Items = append(r.Items, ItemRecord{
				Kind:      p.Kind(),
				Name:      natvis.DisplayName(p),
				Condition: p.Common().Condition.Expression,
			})
		}
	}
	if e.Intrinsics != nil {
		for _, in := range e.Intrinsics.Intrinsics() {
			r.Intrinsics = append(r.Intrinsics, in.Signature())
		}
	}
	return r
}

func encodeEntry(r EntryRecord) ([]byte, error) {
	return msgpack.Marshal(r)
}

func decodeEntry(data []byte) (EntryRecord, error) {
	var r EntryRecord
	err := msgpack.Unmarshal(data, &r)
	return r, err
}

// ContentHash identifies a document by its bytes.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
