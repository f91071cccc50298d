package main

import "github.com/frahmantamala/listing-marketplace/cmd"

func main() {
	cmd.Execute()
}
