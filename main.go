package main

import "github.com/frahmantamala/backoffice-access/cmd"

func main() {
	cmd.Execute()
}
