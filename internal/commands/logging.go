package commands

import (
	"strings"

	"github.com/goliatone/go-workbench/internal/logging"
	"github.com/goliatone/go-workbench/pkg/interfaces"
)

const commandModuleRoot = "workbench.commands"

// CommandLogger returns a module-scoped logger for command handlers with
// structured fields identifying the command module.
func CommandLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	name := strings.TrimSpace(module)
	if name == "" {
		name = "core"
	}
	logger := logging.ModuleLogger(provider, commandModuleRoot+"."+name)
	return logging.WithFields(logger, map[string]any{
		"component":      "command",
		"command_module": name,
	})
}
