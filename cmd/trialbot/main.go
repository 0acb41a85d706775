// Command trialbot runs the trial key Discord bot and its offline admin tools.
package main

import (
	"os"

	"github.com/shampis/trialbot/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
