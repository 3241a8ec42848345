// Package sessions owns the logical session lifecycle: opening a session
// against a registered protocol, recording capabilities discovered after the
// handshake, and tearing the session down. The manager is the canonical
// source feeding tab lists into the store; it never touches tab order or the
// active pointer directly.
package sessions

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/portwayhq/portway/core"
	"github.com/portwayhq/portway/internal/logx"
	"github.com/portwayhq/portway/schema"
)

// Manager tracks open sessions and derives their canonical tab lists.
type Manager struct {
	registry *core.Registry
	store    core.Service

	mu       sync.Mutex
	sessions map[schema.SessionID]*record
}

type record struct {
	protocol     schema.ProtocolID
	capabilities map[schema.Capability]bool
}

// OpenResult reports the outcome of opening a session.
type OpenResult struct {
	SessionID schema.SessionID    `json:"session_id"`
	Protocol  schema.ProtocolID   `json:"protocol"`
	Snapshot  schema.TabsSnapshot `json:"snapshot"`
}

// NewManager constructs a session manager over a registry and a tabs store.
func NewManager(registry *core.Registry, store core.Service) *Manager {
	return &Manager{
		registry: registry,
		store:    store,
		sessions: make(map[schema.SessionID]*record),
	}
}

// Open allocates a session id for the protocol and seeds the store with an
// authoritative sync of the default tabs. Launch options gated on a
// capability enable that capability up front, so its tabs appear
// immediately.
func (m *Manager) Open(ctx context.Context, protocolID schema.ProtocolID, options []string) (OpenResult, error) {
	desc, err := m.registry.Lookup(protocolID)
	if err != nil {
		return OpenResult{}, err
	}

	caps := make(map[schema.Capability]bool)
	for _, optionID := range options {
		option, ok := launchOption(desc, optionID)
		if !ok {
			return OpenResult{}, fmt.Errorf("launch option %q: %w", optionID, schema.ErrUnknownCapability)
		}
		if option.Requires != "" {
			if !desc.Supports(option.Requires) {
				return OpenResult{}, fmt.Errorf("launch option %q: %w", optionID, schema.ErrUnknownCapability)
			}
			caps[option.Requires] = true
		}
	}

	sessionID := schema.SessionID(uuid.NewString())
	rec := &record{protocol: protocolID, capabilities: caps}

	m.mu.Lock()
	m.sessions[sessionID] = rec
	m.mu.Unlock()

	resp, err := m.store.SyncTabs(ctx, schema.SyncTabsRequest{
		SessionID:     sessionID,
		Tabs:          m.canonical(desc, sessionID, rec),
		Authoritative: true,
	})
	if err != nil {
		m.mu.Lock()
		delete(m.sessions, sessionID)
		m.mu.Unlock()
		return OpenResult{}, err
	}

	logx.WithSession(ctx, sessionID).Info("session opened", "protocol", protocolID, "tabs", len(resp.Snapshot.Tabs))
	return OpenResult{SessionID: sessionID, Protocol: protocolID, Snapshot: resp.Snapshot}, nil
}

// DiscoverCapability records a capability reported by the remote side after
// the handshake and feeds the enlarged canonical list to the store. The sync
// is non-authoritative so a user-arranged tab order survives; new tabs
// append.
func (m *Manager) DiscoverCapability(ctx context.Context, sessionID schema.SessionID, capability schema.Capability) (schema.TabsSnapshot, error) {
	m.mu.Lock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return schema.TabsSnapshot{}, schema.ErrUnknownSession
	}
	protocol := rec.protocol
	m.mu.Unlock()

	desc, err := m.registry.Lookup(protocol)
	if err != nil {
		return schema.TabsSnapshot{}, err
	}
	if !desc.Supports(capability) {
		return schema.TabsSnapshot{}, fmt.Errorf("capability %q on %s: %w", capability, protocol, schema.ErrUnknownCapability)
	}

	m.mu.Lock()
	rec.capabilities[capability] = true
	m.mu.Unlock()

	resp, err := m.store.SyncTabs(ctx, schema.SyncTabsRequest{
		SessionID: sessionID,
		Tabs:      m.canonical(desc, sessionID, rec),
	})
	if err != nil {
		return schema.TabsSnapshot{}, err
	}
	logx.WithSession(ctx, sessionID).Info("session capability discovered", "capability", capability, "changed", resp.Changed)
	return resp.Snapshot, nil
}

// Close tears a session down and drops its tab collection.
func (m *Manager) Close(ctx context.Context, sessionID schema.SessionID) error {
	m.mu.Lock()
	_, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return schema.ErrUnknownSession
	}

	if _, err := m.store.RemoveSession(ctx, schema.RemoveSessionRequest{SessionID: sessionID}); err != nil {
		return err
	}
	logx.WithSession(ctx, sessionID).Info("session closed")
	return nil
}

// Protocol reports the protocol a session was opened against.
func (m *Manager) Protocol(sessionID schema.SessionID) (schema.ProtocolID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return "", schema.ErrUnknownSession
	}
	return rec.protocol, nil
}

// canonical derives the session's canonical tab list: default tabs first,
// then capability tabs for every capability enabled on the session, in
// descriptor order.
func (m *Manager) canonical(desc schema.WorkspaceDescriptor, sessionID schema.SessionID, rec *record) []schema.Tab {
	m.mu.Lock()
	caps := make(map[schema.Capability]bool, len(rec.capabilities))
	for capability, on := range rec.capabilities {
		caps[capability] = on
	}
	m.mu.Unlock()

	tabs := make([]schema.Tab, 0, len(desc.DefaultTabs)+len(desc.CapabilityTabs))
	for _, tmpl := range desc.DefaultTabs {
		tabs = append(tabs, tmpl.Instantiate(sessionID))
	}
	for _, capTab := range desc.CapabilityTabs {
		if caps[capTab.Requires] {
			tabs = append(tabs, capTab.Template.Instantiate(sessionID))
		}
	}
	return tabs
}

func launchOption(desc schema.WorkspaceDescriptor, optionID string) (schema.LaunchOption, bool) {
	for _, option := range desc.LaunchOptions {
		if option.ID == optionID {
			return option, true
		}
	}
	return schema.LaunchOption{}, false
}
