package main

import "foldersync/cmd"

func main() {
	cmd.Execute()
}
