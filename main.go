package main

import "github.com/frahmantamala/film-payments/cmd"

func main() {
	cmd.Execute()
}
