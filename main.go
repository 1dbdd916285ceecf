package main

import "github.com/oncallops/mailtriage/cmd"

func main() {
	cmd.Execute()
}
