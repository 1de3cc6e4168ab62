package server

import (
	"github.com/pelletier/go-toml/v2"
)

// Snapshot is an immutable view of the mock data for assertions.
type Snapshot struct {
	// Collections maps a collection name to its ids in listing order.
	Collections map[string][]string
	Kinds       []string
	Events      []SnapshotEvent
}

type SnapshotEvent struct {
	ID   string
	Type string
}

type snapshotTOML struct {
	Collections []snapshotCollection `toml:"collection"`
	Events      []snapshotEvent      `toml:"event,omitempty"`
}

type snapshotCollection struct {
	Name string   `toml:"name"`
	IDs  []string `toml:"ids"`
}

type snapshotEvent struct {
	ID   string `toml:"id"`
	Type string `toml:"type"`
}

func (snap Snapshot) MarshalTOML() ([]byte, error) {
	out := snapshotTOML{Collections: make([]snapshotCollection, 0, len(snap.Kinds))}
	for _, kind := range snap.Kinds {
		out.Collections = append(out.Collections, snapshotCollection{
			Name: kind,
			IDs:  snap.Collections[kind],
		})
	}
	for _, ev := range snap.Events {
		out.Events = append(out.Events, snapshotEvent{ID: ev.ID, Type: ev.Type})
	}

	data, err := toml.Marshal(out)
	if err != nil {
		return nil, err
	}
	return data, nil
}
