package main

import cli "diskbtree/dbcli"

func main() {
	cli.Execute()
}
