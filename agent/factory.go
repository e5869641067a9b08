package agent

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/scipunch/feedpipe/config"
)

// CollectUniqueAgentTypes returns the deduplicated agent names
// requested by the enabled sources.
func CollectUniqueAgentTypes(sources []config.SourceConfig) []string {
	enabled := lo.Filter(sources, func(s config.SourceConfig, _ int) bool {
		return s.IsEnabled()
	})
	return lo.Uniq(lo.FlatMap(enabled, func(s config.SourceConfig, _ int) []string {
		return s.Agents
	}))
}

// Registry maps agent names to their constructors. Populated by Init's
// caller to avoid an import cycle with the concrete agents.
type Registry map[string]func(config.OpenAICredentials) Agent

// Init builds the requested agents, failing fast on unknown names.
func Init(agentTypes []string, creds config.OpenAICredentials, registry Registry) (map[string]Agent, error) {
	agents := make(map[string]Agent, len(agentTypes))
	for _, name := range agentTypes {
		build, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("unknown agent type: %s", name)
		}
		agents[name] = build(creds)
	}
	return agents, nil
}
