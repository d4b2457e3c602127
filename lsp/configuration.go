package lsp

import (
	"bennypowers.dev/vuextract/internal/config"
	"bennypowers.dev/vuextract/internal/log"
	"bennypowers.dev/vuextract/lsp/methods/workspace"
	"bennypowers.dev/vuextract/lsp/types"
)

// GetConfig returns the effective configuration: defaults, then the
// project config file, then client settings.
func (s *Server) GetConfig() types.ServerConfig {
	s.configMu.RLock()
	defer s.configMu.RUnlock()
	return s.config
}

// SetConfig replaces the effective configuration until the next layer
// changes.
func (s *Server) SetConfig(cfg types.ServerConfig) {
	s.configMu.Lock()
	s.config = cfg
	s.configMu.Unlock()
	s.oracle.reset(cfg.TypeServer)
}

// SetClientSettings replaces the settings sent by the client
func (s *Server) SetClientSettings(settings types.ServerConfig) {
	s.configMu.Lock()
	s.client = settings
	cfg := s.recomputeLocked()
	s.configMu.Unlock()
	s.oracle.reset(cfg.TypeServer)
}

// LoadProjectConfig reads the project config under the workspace root
func (s *Server) LoadProjectConfig() error {
	project, err := config.Resolve(s.RootPath())
	if err != nil {
		return err
	}
	s.setProject(project)
	return nil
}

// WatchProjectConfig reloads the project config whenever it changes on
// disk. Without a workspace root there is nothing to watch.
func (s *Server) WatchProjectConfig() error {
	root := s.RootPath()
	if root == "" {
		return nil
	}
	w, err := config.Watch(root, config.DefaultDebounce, func(project config.Config, err error) {
		if err != nil {
			workspace.LogWarning(s.GLSPContext(), "Keeping previous project config: %v", err)
			return
		}
		s.setProject(project)
	})
	if err != nil {
		return err
	}

	s.configMu.Lock()
	old := s.watcher
	s.watcher = w
	s.configMu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

func (s *Server) setProject(project types.ServerConfig) {
	s.configMu.Lock()
	s.project = project
	cfg := s.recomputeLocked()
	s.configMu.Unlock()
	s.oracle.reset(cfg.TypeServer)
}

// recomputeLocked must be called with configMu held for writing
func (s *Server) recomputeLocked() types.ServerConfig {
	s.config = config.Merge(s.project, s.client)
	log.Debug("Effective config: %+v", s.config)
	return s.config
}
