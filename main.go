package main

import "github.com/c4vxl/Agora/cmd"

func main() {
	cmd.Execute()
}
