package file

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/titanous/json5"

	"github.com/nextlevelbuilder/autoreply/internal/store"
)

// Seed is the on-disk standalone dataset. All sections are optional.
type Seed struct {
	Personas  []store.PersonaData         `json:"personas"`
	Knowledge []SeedKnowledge             `json:"knowledge"`
	Contacts  []store.ContactData         `json:"contacts"`
	Orders    []SeedOrder                 `json:"orders"`
	Instances []store.ChannelInstanceData `json:"instances"`
	Turns     []store.ConversationTurn    `json:"turns"`
}

// SeedKnowledge is a knowledge item plus its activation flag (default active).
type SeedKnowledge struct {
	store.KnowledgeItem
	Active *bool `json:"active,omitempty"`
}

func (k SeedKnowledge) active() bool { return k.Active == nil || *k.Active }

// SeedOrder is an order together with its line items and volumes.
type SeedOrder struct {
	store.OrderRecord
	Items   []store.OrderItem   `json:"items,omitempty"`
	Volumes []store.OrderVolume `json:"volumes,omitempty"`
}

// LoadSeed parses a JSON5 seed file. An empty path yields an empty seed.
func LoadSeed(path string) (*Seed, error) {
	if path == "" {
		return &Seed{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var s Seed
	if err := json5.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	for i := range s.Personas {
		if s.Personas[i].ID == uuid.Nil {
			s.Personas[i].ID = store.GenNewID()
		}
	}
	return &s, nil
}
