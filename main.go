package main

import "github.com/ValentinKolb/kvbridge/cmd"

func main() {
	cmd.Execute()
}
