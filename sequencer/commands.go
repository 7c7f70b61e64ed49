package sequencer

import (
	"github.com/recoveryguard/devboot"
)

// noInput tells a management command to use defaults instead of prompting.
const noInput = "--noinput"

// Commands builds the argv for each management command.
type Commands struct {
	// Python is the interpreter used to run the management script (default: "python").
	Python string

	// ManageScript is the path to manage.py, relative to the working directory
	// (default: "manage.py").
	ManageScript string

	// ServerAddr is the optional "[addr:]port" passed to runserver.
	// Empty means Django's default (127.0.0.1:8000).
	ServerAddr string
}

// DefaultCommands returns the commands for a project run from its own directory.
func DefaultCommands() Commands {
	return Commands{
		Python:       "python",
		ManageScript: "manage.py",
	}
}

func (c Commands) withDefaults() Commands {
	defaults := DefaultCommands()
	if c.Python == "" {
		c.Python = defaults.Python
	}
	if c.ManageScript == "" {
		c.ManageScript = defaults.ManageScript
	}
	return c
}

// Generate returns the argv generating migrations for one app.
func (c Commands) Generate(app devboot.AppName) []string {
	return c.manage(string(devboot.StepGenerate), string(app), noInput)
}

// Apply returns the argv applying every pending migration.
func (c Commands) Apply() []string {
	return c.manage(string(devboot.StepApply), noInput)
}

// Serve returns the argv running the development server.
// runserver never prompts, so it takes no --noinput flag.
func (c Commands) Serve() []string {
	if c.ServerAddr == "" {
		return c.manage(string(devboot.StepServe))
	}
	return c.manage(string(devboot.StepServe), c.ServerAddr)
}

func (c Commands) manage(args ...string) []string {
	c = c.withDefaults()
	return append([]string{c.Python, c.ManageScript}, args...)
}
