package main

import "andretools/cmd"

func main() {
	cmd.Execute()
}
