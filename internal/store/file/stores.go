package file

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/autoreply/internal/channels"
	"github.com/nextlevelbuilder/autoreply/internal/store"
)

// FilePersonaStore implements store.PersonaStore over the seed.
type FilePersonaStore struct{ d *Data }

func NewFilePersonaStore(d *Data) *FilePersonaStore { return &FilePersonaStore{d: d} }

func (s *FilePersonaStore) GetByAddress(_ context.Context, digits string) (*store.PersonaData, error) {
	return s.find(func(p *store.PersonaData) bool {
		return digits != "" && channels.DigitsOnly(p.RoutingAddress) == digits
	})
}

func (s *FilePersonaStore) GetByAddressSuffix(_ context.Context, suffix string) (*store.PersonaData, error) {
	return s.find(func(p *store.PersonaData) bool {
		return suffix != "" && p.RoutingAddress != "" && channels.SuffixKey(p.RoutingAddress) == suffix
	})
}

func (s *FilePersonaStore) GetGlobal(_ context.Context) (*store.PersonaData, error) {
	return s.find(func(p *store.PersonaData) bool { return p.IsGlobal })
}

func (s *FilePersonaStore) find(match func(*store.PersonaData) bool) (*store.PersonaData, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	for i := range s.d.seed.Personas {
		if p := &s.d.seed.Personas[i]; match(p) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

// FileConversationStore implements store.ConversationStore: seeded turns plus runtime inserts.
type FileConversationStore struct{ d *Data }

func NewFileConversationStore(d *Data) *FileConversationStore {
	return &FileConversationStore{d: d}
}

func (s *FileConversationStore) RecentTurns(_ context.Context, ownerID string, limit int) ([]store.ConversationTurn, error) {
	s.d.mu.RLock()
	var all []store.ConversationTurn
	for _, t := range s.d.seed.Turns {
		if t.OwnerID == ownerID {
			all = append(all, t)
		}
	}
	for _, t := range s.d.turns {
		if t.OwnerID == ownerID {
			all = append(all, t)
		}
	}
	s.d.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *FileConversationStore) InsertTurn(_ context.Context, t *store.ConversationTurn) error {
	if t.ID == uuid.Nil {
		t.ID = store.GenNewID()
	}
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.turns = append(s.d.turns, *t)
	return nil
}

// FileContactStore implements store.ContactStore over the seed.
type FileContactStore struct{ d *Data }

func NewFileContactStore(d *Data) *FileContactStore { return &FileContactStore{d: d} }

func (s *FileContactStore) FindBySuffix(_ context.Context, suffix string) (*store.ContactData, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	for _, c := range s.d.seed.Contacts {
		if suffix != "" && strings.HasSuffix(channels.DigitsOnly(c.Phone), suffix) {
			cp := c
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

// FileKnowledgeStore implements store.KnowledgeStore over the seed.
type FileKnowledgeStore struct{ d *Data }

func NewFileKnowledgeStore(d *Data) *FileKnowledgeStore { return &FileKnowledgeStore{d: d} }

func (s *FileKnowledgeStore) ListCandidates(_ context.Context, tags []string, limit int) ([]store.KnowledgeItem, error) {
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[t] = true
	}
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	var out []store.KnowledgeItem
	for _, k := range s.d.seed.Knowledge {
		if !k.active() || !want[k.Tag] {
			continue
		}
		out = append(out, k.KnowledgeItem)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// FileRecordStore implements store.RecordStore over the seed.
type FileRecordStore struct{ d *Data }

func NewFileRecordStore(d *Data) *FileRecordStore { return &FileRecordStore{d: d} }

func (s *FileRecordStore) GetByID(_ context.Context, id string) (*store.OrderRecord, error) {
	o := s.order(func(o *SeedOrder) bool { return o.ID == id })
	if o == nil {
		return nil, store.ErrNotFound
	}
	rec := o.OrderRecord
	return &rec, nil
}

func (s *FileRecordStore) GetByNumber(_ context.Context, number string) (*store.OrderRecord, error) {
	o := s.order(func(o *SeedOrder) bool { return o.OrderNumber == number })
	if o == nil {
		return nil, store.ErrNotFound
	}
	rec := o.OrderRecord
	return &rec, nil
}

func (s *FileRecordStore) GetLatestForCustomer(_ context.Context, customerID string) (*store.OrderRecord, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	var latest *store.OrderRecord
	for i := range s.d.seed.Orders {
		o := &s.d.seed.Orders[i].OrderRecord
		if o.CustomerID != customerID {
			continue
		}
		if latest == nil || o.CreatedAt.After(latest.CreatedAt) {
			latest = o
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	rec := *latest
	return &rec, nil
}

func (s *FileRecordStore) ListItems(_ context.Context, orderID string) ([]store.OrderItem, error) {
	o := s.order(func(o *SeedOrder) bool { return o.ID == orderID })
	if o == nil {
		return nil, nil
	}
	return append([]store.OrderItem(nil), o.Items...), nil
}

func (s *FileRecordStore) ListVolumes(_ context.Context, orderID string) ([]store.OrderVolume, error) {
	o := s.order(func(o *SeedOrder) bool { return o.ID == orderID })
	if o == nil {
		return nil, nil
	}
	return append([]store.OrderVolume(nil), o.Volumes...), nil
}

func (s *FileRecordStore) order(match func(*SeedOrder) bool) *SeedOrder {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	for i := range s.d.seed.Orders {
		if o := &s.d.seed.Orders[i]; match(o) {
			cp := *o
			return &cp
		}
	}
	return nil
}

// FileNotificationStore keeps the audit log in memory.
type FileNotificationStore struct{ d *Data }

func NewFileNotificationStore(d *Data) *FileNotificationStore {
	return &FileNotificationStore{d: d}
}

func (s *FileNotificationStore) InsertLog(_ context.Context, e *store.NotificationLogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = store.GenNewID()
	}
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.logs = append(s.d.logs, *e)
	return nil
}

// FileHandoffStore keeps handoff flags in memory.
type FileHandoffStore struct{ d *Data }

func NewFileHandoffStore(d *Data) *FileHandoffStore { return &FileHandoffStore{d: d} }

// Upsert keeps the first detected_at of an open handoff and refreshes the rest.
func (s *FileHandoffStore) Upsert(_ context.Context, st store.HandoffState) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if prev, ok := s.d.handoffs[st.OwnerKey]; ok && prev.RequiresHuman {
		st.DetectedAt = prev.DetectedAt
	}
	s.d.handoffs[st.OwnerKey] = st
	return nil
}

// FileChannelInstanceStore implements store.ChannelInstanceStore over the seed.
type FileChannelInstanceStore struct{ d *Data }

func NewFileChannelInstanceStore(d *Data) *FileChannelInstanceStore {
	return &FileChannelInstanceStore{d: d}
}

func (s *FileChannelInstanceStore) ListConnected(_ context.Context) ([]store.ChannelInstanceData, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	var out []store.ChannelInstanceData
	for _, inst := range s.d.seed.Instances {
		if inst.Status == store.InstanceConnected {
			out = append(out, inst)
		}
	}
	return out, nil
}
