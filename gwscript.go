package gwscript

import (
	"github.com/xiaonanln/gwscript/engine/config"
	"github.com/xiaonanln/gwscript/engine/entity"
	"github.com/xiaonanln/gwscript/engine/host"
)

// LoadConfig reads the config file, or the default config file if path is empty
func LoadConfig(path string) *config.GWScriptConfig {
	if path != "" {
		config.SetConfigFile(path)
	}
	return config.Get()
}

// NewHost creates the host described by the config
func NewHost(cfg *config.GWScriptConfig) (*host.Host, error) {
	return host.New(cfg)
}

// Run creates the host, spawns the manifest entities and runs the frame loop until terminated
func Run(cfg *config.GWScriptConfig) error {
	h, err := host.New(cfg)
	if err != nil {
		return err
	}
	h.LoadEntities()
	h.Run()
	return nil
}

// CreateEntityByName creates an entity of the class in the host world, see World.CreateEntityByName
func CreateEntityByName(h *host.Host, className string, forceEdictIndex int) entity.IEntity {
	return h.World().CreateEntityByName(className, forceEdictIndex)
}

// DispatchSpawn spawns the entity in the host world, see World.DispatchSpawn
func DispatchSpawn(h *host.Host, e entity.IEntity) int {
	return h.World().DispatchSpawn(e)
}
