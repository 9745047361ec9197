package main

import (
	"fmt"
	"time"
)

//convert a duration to a reasonably-looking string
func prettyTime(delta time.Duration) string {
	delta = delta.Round(time.Second)
	return delta.String()
}

func formatRate(mibPerSec float64) string {
	return fmt.Sprintf("%.2f MiB/s", mibPerSec)
}
