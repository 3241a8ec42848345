package core

import "pkt.systems/pslog"

// ServiceDeps captures optional dependencies for the tabs store.
type ServiceDeps struct {
	EventSink EventSink
	Logger    pslog.Logger
}
