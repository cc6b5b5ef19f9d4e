package main

import "pagetags/cli"

func main() {
	cli.Execute()
}
