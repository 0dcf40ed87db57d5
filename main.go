package main

import "github.com/martinmballe/crowdcount3/cmd"

func main() {
	cmd.Execute()
}
