package main

import "github.com/saadjs/niclog/cmd/niclog"

func main() {
	niclog.Execute()
}
