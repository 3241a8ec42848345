package portway

import (
	"github.com/portwayhq/portway/core"
	"github.com/portwayhq/portway/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnTabsEvent(event schema.TabsEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnTabsEvent(event)
	}
}
