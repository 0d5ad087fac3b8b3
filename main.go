package main

import "github.com/KaramelBytes/readmegen-cli/cmd"

func main() {
	cmd.Execute()
}
