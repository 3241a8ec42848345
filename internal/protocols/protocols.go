// Package protocols carries the builtin workspace descriptors for the
// protocols the console ships with, plus YAML manifest loading for
// deployments that add their own.
package protocols

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/portwayhq/portway/core"
	"github.com/portwayhq/portway/schema"
)

// Builtins returns the descriptors for the protocols the console supports
// out of the box. The order is the catalog display order.
func Builtins() []schema.WorkspaceDescriptor {
	return []schema.WorkspaceDescriptor{
		{
			ProtocolID:  "ssh",
			DisplayName: "SSH",
			Icon:        "terminal",
			Features: map[schema.Capability]bool{
				"supportsSftp":      true,
				"supportsRecording": true,
			},
			DefaultTabs: []schema.TabTemplate{
				{ViewType: "terminal", Title: "Terminal", Closable: false},
			},
			CapabilityTabs: []schema.CapabilityTab{
				{Requires: "supportsSftp", Template: schema.TabTemplate{ViewType: "sftp", Title: "Files", Closable: true}},
			},
			LaunchOptions: []schema.LaunchOption{
				{ID: "recording", Label: "Record session", Requires: "supportsRecording"},
			},
		},
		{
			ProtocolID:  "telnet",
			DisplayName: "Telnet",
			Icon:        "terminal",
			DefaultTabs: []schema.TabTemplate{
				{ViewType: "terminal", Title: "Terminal", Closable: false},
			},
		},
		{
			ProtocolID:  "rdp",
			DisplayName: "RDP",
			Icon:        "desktop",
			Features: map[schema.Capability]bool{
				"supportsClipboard": true,
				"supportsAudio":     true,
			},
			DefaultTabs: []schema.TabTemplate{
				{ViewType: "desktop", Title: "Desktop", Closable: false},
			},
			LaunchOptions: []schema.LaunchOption{
				{ID: "audio", Label: "Redirect audio", Requires: "supportsAudio"},
			},
		},
		{
			ProtocolID:  "vnc",
			DisplayName: "VNC",
			Icon:        "desktop",
			Features: map[schema.Capability]bool{
				"supportsClipboard": true,
			},
			DefaultTabs: []schema.TabTemplate{
				{ViewType: "desktop", Title: "Desktop", Closable: false},
			},
		},
		{
			ProtocolID:  "docker-exec",
			DisplayName: "Docker",
			Icon:        "container",
			Features: map[schema.Capability]bool{
				"supportsLogs": true,
			},
			DefaultTabs: []schema.TabTemplate{
				{ViewType: "terminal", Title: "Shell", Closable: false},
			},
			CapabilityTabs: []schema.CapabilityTab{
				{Requires: "supportsLogs", Template: schema.TabTemplate{ViewType: "logs", Title: "Logs", Closable: true}},
			},
		},
		{
			ProtocolID:  "kubernetes",
			DisplayName: "Kubernetes",
			Icon:        "container",
			Features: map[schema.Capability]bool{
				"supportsLogs": true,
			},
			DefaultTabs: []schema.TabTemplate{
				{ViewType: "terminal", Title: "Shell", Closable: false},
			},
			CapabilityTabs: []schema.CapabilityTab{
				{Requires: "supportsLogs", Template: schema.TabTemplate{ViewType: "logs", Title: "Logs", Closable: true}},
			},
		},
	}
}

// Manifest is the on-disk form of additional protocol descriptors.
type Manifest struct {
	Protocols []schema.WorkspaceDescriptor `yaml:"protocols"`
}

// LoadManifest reads a YAML protocol manifest. Descriptor validation is
// deferred to registration.
func LoadManifest(path string) ([]schema.WorkspaceDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read protocol manifest: %w", err)
	}
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse protocol manifest %s: %w", path, err)
	}
	return manifest.Protocols, nil
}

// Register registers descriptors in order, stopping at the first failure.
func Register(registry *core.Registry, descs []schema.WorkspaceDescriptor) error {
	for _, desc := range descs {
		if err := registry.Register(desc); err != nil {
			return fmt.Errorf("register protocol %s: %w", desc.ProtocolID, err)
		}
	}
	return nil
}
