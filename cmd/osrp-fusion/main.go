package main

import "github.com/open-sensor-research-platform/osrp/cmd/osrp-fusion/commands"

func main() {
	commands.Execute()
}
