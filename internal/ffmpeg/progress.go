package ffmpeg

import (
	"regexp"
	"strconv"
)

// The transcoder reports position on its stats line:
//
//	frame=  120 fps= 30 q=-1.0 size=    1024kB time=00:00:04.00 bitrate=2097.2kbits/s speed=1.5x
//
// The time= value against the expected total duration gives a progress
// fraction.
var timeRe = regexp.MustCompile(`time=(\d{2,}):(\d{2}):(\d{2})\.(\d{2})`)

// ParseProgress extracts a progress fraction in [0,1] from one
// diagnostic line. ok is false when the line carries no timestamp.
func ParseProgress(line string, totalDuration float64) (fraction float64, ok bool) {
	m := timeRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}

	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	centis, _ := strconv.Atoi(m[4])

	current := float64(hours)*3600 + float64(minutes)*60 + float64(seconds) + float64(centis)/100

	if totalDuration <= 0 {
		return 0, true
	}
	fraction = current / totalDuration
	if fraction > 1 {
		fraction = 1
	}
	return fraction, true
}
