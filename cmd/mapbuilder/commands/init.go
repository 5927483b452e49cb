package commands

import (
	"fmt"

	"git.home.luguber.info/inful/mapbuilder/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	fmt.Printf("Writing configuration to %s\n", root.Config)
	if err := config.Init(root.Config, i.Force); err != nil {
		return err
	}
	fmt.Println("Set GITHUB_SECRET (or webhook.secret) before running 'mapbuilder serve'")
	return nil
}
