package types

// AgentCategory splits the roster into conversation-driving agents and
// background system agents.
type AgentCategory string

const (
	AgentInteractive AgentCategory = "Interactive"
	AgentSystem      AgentCategory = "System"
)

// Agent keys. These match the responder names the backend declares on every
// chat turn, so they double as transcript speaker keys.
const (
	AgentKai   = "Kai"
	AgentElara = "Elara"
	AgentVero  = "Vero"
	AgentAegis = "Aegis"
	AgentOrion = "Orion"
)

// Agent is one entry of the fixed five-agent catalog.
type Agent struct {
	Key      string
	Label    string
	Icon     string
	Category AgentCategory
}

// AgentCatalog is the fixed roster in display order. Kai runs the screening,
// Elara the conversation, Vero resources, Aegis crisis support, Orion the
// off-thread analysis.
var AgentCatalog = []Agent{
	{Key: AgentKai, Label: "Kai", Icon: "📋", Category: AgentInteractive},
	{Key: AgentElara, Label: "Elara", Icon: "💬", Category: AgentInteractive},
	{Key: AgentVero, Label: "Vero", Icon: "📖", Category: AgentInteractive},
	{Key: AgentAegis, Label: "Aegis", Icon: "🛡", Category: AgentSystem},
	{Key: AgentOrion, Label: "Orion", Icon: "📈", Category: AgentSystem},
}

// LookupAgent returns the catalog entry for key. Unknown responders fall back
// to Elara so a misbehaving backend can never break attribution.
func LookupAgent(key string) Agent {
	for _, a := range AgentCatalog {
		if a.Key == key {
			return a
		}
	}
	return AgentCatalog[1]
}

// KnownAgent reports whether key names a catalog entry.
func KnownAgent(key string) bool {
	for _, a := range AgentCatalog {
		if a.Key == key {
			return true
		}
	}
	return false
}
