package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/domain"
)

type TenantStore struct{ c *Conn }

func (s *TenantStore) Create(_ context.Context, t *domain.Tenant) error {
	return s.c.view(func(st *state) error {
		if _, ok := st.tenants[t.ID]; ok {
			return fmt.Errorf("tenant %s: %w", t.ID, domain.ErrDuplicate)
		}
		for _, existing := range st.tenants {
			if strings.EqualFold(existing.Domain, t.Domain) {
				return fmt.Errorf("tenant domain %q: %w", t.Domain, domain.ErrDuplicate)
			}
		}
		stamp(&t.CreatedAt, &t.UpdatedAt)
		st.tenants[t.ID] = *t
		return nil
	})
}

func (s *TenantStore) Get(_ context.Context, id uuid.UUID) (*domain.Tenant, error) {
	var out domain.Tenant
	err := s.c.view(func(st *state) error {
		t, ok := st.tenants[id]
		if !ok {
			return domain.ErrTenantNotFound
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *TenantStore) GetByDomain(_ context.Context, d string) (*domain.Tenant, error) {
	var out *domain.Tenant
	err := s.c.view(func(st *state) error {
		for _, t := range st.tenants {
			if strings.EqualFold(t.Domain, d) {
				out = &t
				return nil
			}
		}
		return domain.ErrTenantNotFound
	})
	return out, err
}

func (s *TenantStore) List(_ context.Context) ([]domain.Tenant, error) {
	var out []domain.Tenant
	err := s.c.view(func(st *state) error {
		for _, t := range st.tenants {
			out = append(out, t)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

func (s *TenantStore) UpdateAPIKeyHash(_ context.Context, id uuid.UUID, hash string) error {
	return s.c.view(func(st *state) error {
		t, ok := st.tenants[id]
		if !ok {
			return domain.ErrTenantNotFound
		}
		t.APIKeyHash = hash
		t.UpdatedAt = now()
		st.tenants[id] = t
		return nil
	})
}

type UserStore struct{ c *Conn }

func (s *UserStore) Create(_ context.Context, u *domain.User) error {
	return s.c.view(func(st *state) error {
		if _, ok := st.users[u.ID]; ok {
			return fmt.Errorf("user %s: %w", u.ID, domain.ErrDuplicate)
		}
		for _, existing := range st.users {
			if strings.EqualFold(existing.Email, u.Email) {
				return fmt.Errorf("user email %q: %w", u.Email, domain.ErrDuplicate)
			}
		}
		stamp(&u.CreatedAt, &u.UpdatedAt)
		cp := *u
		cp.Roles = slices.Clone(u.Roles)
		st.users[u.ID] = cp
		return nil
	})
}

func (s *UserStore) Get(_ context.Context, id uuid.UUID) (*domain.User, error) {
	var out domain.User
	err := s.c.view(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		out = u
		out.Roles = slices.Clone(u.Roles)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type AgentStore struct{ c *Conn }

func (s *AgentStore) Create(_ context.Context, a *domain.Agent) error {
	return s.c.view(func(st *state) error {
		if _, ok := st.agents[a.ID]; ok {
			return fmt.Errorf("agent %s: %w", a.ID, domain.ErrDuplicate)
		}
		stamp(&a.CreatedAt, &a.UpdatedAt)
		st.agents[a.ID] = *a
		return nil
	})
}

func (s *AgentStore) Get(_ context.Context, id uuid.UUID) (*domain.Agent, error) {
	var out domain.Agent
	err := s.c.view(func(st *state) error {
		a, ok := st.agents[id]
		if !ok {
			return domain.ErrAgentNotFound
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *AgentStore) Update(_ context.Context, a *domain.Agent) error {
	return s.c.view(func(st *state) error {
		existing, ok := st.agents[a.ID]
		if !ok {
			return domain.ErrAgentNotFound
		}
		a.CreatedAt = existing.CreatedAt
		a.UpdatedAt = now()
		st.agents[a.ID] = *a
		return nil
	})
}

func (s *AgentStore) List(_ context.Context, f domain.AgentFilter) ([]domain.Agent, error) {
	var out []domain.Agent
	err := s.c.view(func(st *state) error {
		for _, a := range st.agents {
			if agentMatches(a, f) {
				out = append(out, a)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return page(out, f.Limit, f.Offset), err
}

func agentMatches(a domain.Agent, f domain.AgentFilter) bool {
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, a.ID) {
		return false
	}
	if f.Name != "" && !strings.Contains(strings.ToLower(a.Name), strings.ToLower(f.Name)) {
		return false
	}
	if f.PrimaryProvider != nil && a.PrimaryProvider != *f.PrimaryProvider {
		return false
	}
	if f.FallbackProvider != nil && (a.FallbackProvider == nil || *a.FallbackProvider != *f.FallbackProvider) {
		return false
	}
	return true
}

type SessionStore struct{ c *Conn }

func (s *SessionStore) Create(_ context.Context, sess *domain.Session) error {
	return s.c.view(func(st *state) error {
		if _, ok := st.sessions[sess.ID]; ok {
			return fmt.Errorf("session %s: %w", sess.ID, domain.ErrDuplicate)
		}
		stamp(&sess.CreatedAt, nil)
		st.sessions[sess.ID] = *sess
		return nil
	})
}

func (s *SessionStore) Get(_ context.Context, id uuid.UUID) (*domain.Session, error) {
	var out domain.Session
	err := s.c.view(func(st *state) error {
		sess, ok := st.sessions[id]
		if !ok {
			return domain.ErrSessionNotFound
		}
		out = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SessionStore) List(_ context.Context, f domain.SessionFilter) ([]domain.Session, error) {
	var out []domain.Session
	err := s.c.view(func(st *state) error {
		for _, sess := range st.sessions {
			if f.OwnerUserID != uuid.Nil && sess.OwnerUserID != f.OwnerUserID {
				continue
			}
			if len(f.AgentIDs) > 0 && !slices.Contains(f.AgentIDs, sess.AgentID) {
				continue
			}
			out = append(out, sess)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), err
}

type MessageStore struct{ c *Conn }

func (s *MessageStore) Create(_ context.Context, m *domain.Message) error {
	return s.c.view(func(st *state) error {
		if _, ok := st.messages[m.ID]; ok {
			return fmt.Errorf("message %s: %w", m.ID, domain.ErrDuplicate)
		}
		if m.UniqKey != nil {
			for _, sm := range st.messages {
				if sm.msg.SessionID == m.SessionID && sm.msg.UniqKey != nil && *sm.msg.UniqKey == *m.UniqKey {
					return fmt.Errorf("message uniq key %q: %w", *m.UniqKey, domain.ErrDuplicate)
				}
			}
		}
		stamp(&m.CreatedAt, &m.UpdatedAt)
		st.seq++
		cp := *m
		cp.Usage = nil
		st.messages[m.ID] = storedMessage{msg: cp, seq: st.seq}
		return nil
	})
}

func (s *MessageStore) Get(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	var out domain.Message
	err := s.c.view(func(st *state) error {
		sm, ok := st.messages[id]
		if !ok {
			return domain.ErrMessageNotFound
		}
		out = sm.msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MessageStore) GetByUniqKey(_ context.Context, sessionID uuid.UUID, key string) (*domain.Message, error) {
	var out *domain.Message
	err := s.c.view(func(st *state) error {
		for _, sm := range st.messages {
			if sm.msg.SessionID == sessionID && sm.msg.UniqKey != nil && *sm.msg.UniqKey == key {
				m := sm.msg
				out = &m
				return nil
			}
		}
		return domain.ErrMessageNotFound
	})
	return out, err
}

func (s *MessageStore) GetReply(_ context.Context, replyToID uuid.UUID) (*domain.Message, error) {
	var out *domain.Message
	err := s.c.view(func(st *state) error {
		var best *storedMessage
		for _, sm := range st.messages {
			if sm.msg.ReplyToMessageID != nil && *sm.msg.ReplyToMessageID == replyToID {
				if best == nil || sm.seq < best.seq {
					best = &sm
				}
			}
		}
		if best == nil {
			return domain.ErrMessageNotFound
		}
		m := best.msg
		out = &m
		return nil
	})
	return out, err
}

func (s *MessageStore) ListBySession(_ context.Context, sessionID uuid.UUID) ([]domain.Message, error) {
	var stored []storedMessage
	err := s.c.view(func(st *state) error {
		for _, sm := range st.messages {
			if sm.msg.SessionID == sessionID {
				stored = append(stored, sm)
			}
		}
		return nil
	})
	sort.Slice(stored, func(i, j int) bool {
		if !stored[i].msg.CreatedAt.Equal(stored[j].msg.CreatedAt) {
			return stored[i].msg.CreatedAt.Before(stored[j].msg.CreatedAt)
		}
		return stored[i].seq < stored[j].seq
	})
	out := make([]domain.Message, len(stored))
	for i, sm := range stored {
		out[i] = sm.msg
	}
	return out, err
}

func (s *MessageStore) Complete(_ context.Context, id uuid.UUID, content string) (bool, error) {
	var done bool
	err := s.c.view(func(st *state) error {
		sm, ok := st.messages[id]
		if !ok {
			return domain.ErrMessageNotFound
		}
		if !sm.msg.IsGenerating {
			return nil
		}
		sm.msg.Content = content
		sm.msg.IsGenerating = false
		sm.msg.UpdatedAt = now()
		st.messages[id] = sm
		done = true
		return nil
	})
	return done, err
}

func (s *MessageStore) ListGeneratingBefore(_ context.Context, before time.Time, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := s.c.view(func(st *state) error {
		for _, sm := range st.messages {
			if sm.msg.IsGenerating && sm.msg.CreatedAt.Before(before) {
				out = append(out, sm.msg)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return page(out, limit, 0), err
}

type UsageStore struct{ c *Conn }

func (s *UsageStore) Create(_ context.Context, u *domain.UsageRecord) error {
	return s.c.view(func(st *state) error {
		if _, ok := st.usage[u.ID]; ok {
			return fmt.Errorf("usage %s: %w", u.ID, domain.ErrDuplicate)
		}
		for _, existing := range st.usage {
			if existing.GenerativeResponseID == u.GenerativeResponseID {
				return fmt.Errorf("usage for response %s: %w", u.GenerativeResponseID, domain.ErrDuplicate)
			}
		}
		stamp(&u.CreatedAt, nil)
		st.usage[u.ID] = *u
		return nil
	})
}

func (s *UsageStore) ListByResponseIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.UsageRecord, error) {
	out := make(map[uuid.UUID]domain.UsageRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	err := s.c.view(func(st *state) error {
		for _, u := range st.usage {
			if slices.Contains(ids, u.GenerativeResponseID) {
				out[u.GenerativeResponseID] = u
			}
		}
		return nil
	})
	return out, err
}

func (s *UsageStore) Aggregate(_ context.Context, q domain.UsageQuery) ([]domain.UsageRow, error) {
	var records []domain.UsageRecord
	err := s.c.view(func(st *state) error {
		records = make([]domain.UsageRecord, 0, len(st.usage))
		for _, u := range st.usage {
			records = append(records, u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.Before(records[j].CreatedAt) })
	return domain.AggregateUsage(records, q), nil
}
