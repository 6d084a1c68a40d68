package command

import "fmt"

// Version is embeddb's release version, set at build time via -ldflags.
var Version = "dev"

// VersionCommand prints the build version.
type VersionCommand struct{}

func (c *VersionCommand) Help() string     { return "Usage: embeddb version" }
func (c *VersionCommand) Synopsis() string { return "Prints the embeddb version" }

func (c *VersionCommand) Run(args []string) int {
	fmt.Println("embeddb " + Version)
	return 0
}
