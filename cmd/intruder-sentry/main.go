package main

import "github.com/oshokin/intruder-sentry/cmd/intruder-sentry/cmd"

func main() {
	cmd.Execute()
}
