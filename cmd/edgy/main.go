// edgy - multi-finger edge swipe gestures for Linux touch screens
//
//	edgy run                Run the gesture daemon
//	edgy check              Parse and print the configured actions
//	edgy devices            List multitouch devices
//	edgy passthrough <cmd>  Query or change passthrough mode of a running daemon
//	edgy watch              Print gestures recognised by a running daemon
//	edgy config <cmd>       Create or inspect configuration files
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "edgy:", err)
		os.Exit(1)
	}
}
