package main

import "github.com/MeKo-Tech/longimg/cmd/longimg/cmd"

func main() {
	cmd.Execute()
}
