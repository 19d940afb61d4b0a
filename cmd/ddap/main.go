package main

import "github.com/ValentinKolb/dDAP/cmd"

func main() {
	cmd.Execute()
}
