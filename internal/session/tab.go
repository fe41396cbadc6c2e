package session

import "fmt"

// Tab identifies one dashboard view.
type Tab string

// Dashboard tabs in navigation order.
const (
	TabDashboard Tab = "dashboard"
	TabScanner   Tab = "scanner"
	TabHistory   Tab = "history"
	TabLogs      Tab = "logs"
	TabSettings  Tab = "settings"
)

// DefaultTab is shown after login and whenever no valid tab is stored.
const DefaultTab = TabDashboard

// Tabs lists every tab in navigation order.
var Tabs = []Tab{TabDashboard, TabScanner, TabHistory, TabLogs, TabSettings}

// ParseTab returns the tab named s.
func ParseTab(s string) (Tab, error) {
	for _, t := range Tabs {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTab, s)
}

// Index returns the tab's position in Tabs, or -1.
func (t Tab) Index() int {
	for i, known := range Tabs {
		if known == t {
			return i
		}
	}
	return -1
}

// Next returns the tab after t, wrapping around.
func (t Tab) Next() Tab {
	i := t.Index()
	if i < 0 {
		return DefaultTab
	}
	return Tabs[(i+1)%len(Tabs)]
}

// Prev returns the tab before t, wrapping around.
func (t Tab) Prev() Tab {
	i := t.Index()
	if i < 0 {
		return DefaultTab
	}
	return Tabs[(i-1+len(Tabs))%len(Tabs)]
}
