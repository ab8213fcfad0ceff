package main

import "github.com/vibast-solutions/lib-go-checkout/cmd"

func main() {
	cmd.Execute()
}
