package main

import "github.com/dhwanilabs/dhwani_backend/cmd"

func main() {
	cmd.Execute()
}
