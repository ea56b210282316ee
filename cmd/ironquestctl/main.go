package main

import "ironquest/cmd/ironquestctl/root"

func main() {
	root.Execute()
}
