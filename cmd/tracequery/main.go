// Tracequery inspects trace files written by chrometrace.
package main

import "github.com/zoobzio/chrometrace/internal/cli"

func main() {
	cli.Execute()
}
